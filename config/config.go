// Package config holds the proxy's Data Model Config (spec §3): an
// immutable-per-match-snapshot bag of settings covering matchmaking policy,
// per-match defaults, process options and the three listener addresses.
package config

import "fmt"

// MatchmakingMode selects the Supervisor's matchmaking dispatch (spec §4.7).
type MatchmakingMode string

const (
	ModeVsBuiltinAI      MatchmakingMode = "VsBuiltinAI"
	ModePairs            MatchmakingMode = "Pairs"
	ModeSingleplayer     MatchmakingMode = "Singleplayer"
	ModeRemoteController MatchmakingMode = "RemoteController"
)

// Matchmaking mirrors the [matchmaking] TOML table.
type Matchmaking struct {
	Mode          MatchmakingMode `mapstructure:"mode" toml:"mode" json:"mode"`
	CPURace       string          `mapstructure:"cpu_race" toml:"cpu_race" json:"cpu_race"`
	CPUDifficulty string          `mapstructure:"cpu_difficulty" toml:"cpu_difficulty" json:"cpu_difficulty"`
}

// Game mirrors [match_defaults.game]. MaxPlayers stands in for the spec's
// map.max_players: find_map's contract (spec §1, "Out of scope") resolves a
// name to a path only, with no capacity metadata, so this rework sources
// the Lobby's participants+computers cap from config instead of the map
// file itself (see DESIGN.md).
type Game struct {
	MapName           string   `mapstructure:"map_name" toml:"map_name" json:"map_name"`
	DisableFog        bool     `mapstructure:"disable_fog" toml:"disable_fog" json:"disable_fog"`
	RandomSeed        *uint32  `mapstructure:"random_seed" toml:"random_seed" json:"random_seed,omitempty"`
	Realtime          bool     `mapstructure:"realtime" toml:"realtime" json:"realtime"`
	AllowedInterfaces []string `mapstructure:"allowed_interfaces" toml:"allowed_interfaces" json:"allowed_interfaces,omitempty"`
	MaxPlayers        int      `mapstructure:"max_players" toml:"max_players" json:"max_players"`
}

// RequestLimits mirrors [match_defaults.request_limits].
type RequestLimits struct {
	DisableCheats bool `mapstructure:"disable_cheats" toml:"disable_cheats" json:"disable_cheats"`
}

// TimeLimits mirrors [match_defaults.time_limits]. When GameLoops is
// non-nil, the Player forces a Defeat for its slot once the engine reports
// an observation past that loop count (spec §9 open question, resolved).
type TimeLimits struct {
	GameLoops *uint64 `mapstructure:"game_loops" toml:"game_loops" json:"game_loops,omitempty"`
}

// RecordResults mirrors [match_defaults.record_results]; match-history
// persistence is an explicit spec Non-goal, so this table is carried for
// TOML-shape compatibility only and never consulted.
type RecordResults struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled" json:"enabled"`
}

// MatchDefaults mirrors [match_defaults].
type MatchDefaults struct {
	Game          Game          `mapstructure:"game" toml:"game" json:"game"`
	RequestLimits RequestLimits `mapstructure:"request_limits" toml:"request_limits" json:"request_limits"`
	TimeLimits    TimeLimits    `mapstructure:"time_limits" toml:"time_limits" json:"time_limits"`
	RecordResults RecordResults `mapstructure:"record_results" toml:"record_results" json:"record_results"`
}

// Process carries opaque options handed verbatim to the Process Adapter.
type Process struct {
	Options map[string]string `mapstructure:"options" toml:"options" json:"options"`
}

// Endpoint is a host/port pair, used for every listener address.
type Endpoint struct {
	Host string `mapstructure:"host" toml:"host" json:"host"`
	Port int    `mapstructure:"port" toml:"port" json:"port"`
}

// Addr renders the endpoint as a net.Dial/net.Listen address.
func (e Endpoint) Addr() string { return fmt.Sprintf("%s:%d", e.Host, e.Port) }

// RemoteControllerConfig mirrors [remote_controller]; Enabled gates whether
// main.go starts the RPC server at all.
type RemoteControllerConfig struct {
	Endpoint `mapstructure:",squash" toml:",inline" json:",inline"`
	Enabled  bool `mapstructure:"enabled" toml:"enabled" json:"enabled"`
}

// Config is the Supervisor's immutable snapshot (spec §3). A Supervisor may
// swap its Config between games; a Lobby or Game binds whatever snapshot was
// active when it was created and never observes a later swap.
type Config struct {
	Proxy            Endpoint               `mapstructure:"proxy" toml:"proxy" json:"proxy"`
	RemoteController RemoteControllerConfig `mapstructure:"remote_controller" toml:"remote_controller" json:"remote_controller"`
	Diagnostics      Endpoint               `mapstructure:"diagnostics" toml:"diagnostics" json:"diagnostics"`
	Process          Process                `mapstructure:"process" toml:"process" json:"process"`
	Matchmaking      Matchmaking            `mapstructure:"matchmaking" toml:"matchmaking" json:"matchmaking"`
	MatchDefaults    MatchDefaults          `mapstructure:"match_defaults" toml:"match_defaults" json:"match_defaults"`
}

// DefaultConfig returns the proxy's out-of-the-box configuration: every
// table and field defaulted per spec §6.
func DefaultConfig() Config {
	return Config{
		Proxy: Endpoint{Host: "127.0.0.1", Port: 8642},
		RemoteController: RemoteControllerConfig{
			Endpoint: Endpoint{Host: "127.0.0.1", Port: 2468},
			Enabled:  false,
		},
		Diagnostics: Endpoint{Host: "127.0.0.1", Port: 9090},
		Process: Process{Options: map[string]string{}},
		Matchmaking: Matchmaking{
			Mode:          ModeVsBuiltinAI,
			CPURace:       "Random",
			CPUDifficulty: "Medium",
		},
		MatchDefaults: MatchDefaults{
			Game: Game{
				MapName:           "",
				DisableFog:        false,
				Realtime:          false,
				AllowedInterfaces: nil,
				MaxPlayers:        2,
			},
			RequestLimits: RequestLimits{DisableCheats: false},
			TimeLimits:    TimeLimits{},
			RecordResults: RecordResults{Enabled: false},
		},
	}
}

// MapResolver resolves a configured map name to a filesystem path; it is the
// contract the maps package implements (spec §1's find_map collaborator).
type MapResolver interface {
	FindMap(name string) (string, bool)
}

// Check validates the config before it is used to create any lobby (spec
// §4.7): the map must be set and resolvable. The Supervisor treats a Check
// failure surfaced here as defense-in-depth only — config is expected to
// have already been validated at load time.
func (c Config) Check(resolver MapResolver) error {
	if c.MatchDefaults.Game.MapName == "" {
		return fmt.Errorf("config: match_defaults.game.map_name is not set")
	}
	if _, ok := resolver.FindMap(c.MatchDefaults.Game.MapName); !ok {
		return fmt.Errorf("config: map %q could not be resolved", c.MatchDefaults.Game.MapName)
	}
	return nil
}
