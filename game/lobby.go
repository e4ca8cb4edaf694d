package game

import (
	"fmt"

	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/maps"
	"github.com/lguibr/sc2-proxy/ports"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/lguibr/sc2-proxy/wire"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ComputerSlot is one engine-built-in opponent (spec §3's computers list).
type ComputerSlot struct {
	Race       sc2types.Race
	Difficulty sc2types.Difficulty
}

// joinedParticipant pairs a Player with the join request it arrived with;
// the request is stashed (not yet sent to any engine) until Start runs the
// handshake (spec §4.5's join operation).
type joinedParticipant struct {
	player  *Player
	joinReq wire.Request
}

// LobbyError is returned by Start on any handshake failure; it names which
// phase failed so the Supervisor can log a precise reason (spec §7's
// HandshakeError).
type LobbyError struct {
	Phase   string
	Message string
}

func (e *LobbyError) Error() string { return fmt.Sprintf("game: lobby %s failed: %s", e.Phase, e.Message) }

// Lobby accumulates participants and computer players for one unstarted
// match (spec §3, §4.5). It is mutated only by the Supervisor.
type Lobby struct {
	ID     uint64
	Config config.Config

	participants []*joinedParticipant
	computers    []ComputerSlot

	resolver MapResolver
	ports    *ports.Allocator
	logger   zerolog.Logger
}

// MapResolver is the find_map collaborator (spec §1).
type MapResolver interface {
	FindMap(name string) (string, bool)
}

// NewLobby creates an empty lobby bound to id and a Config snapshot.
func NewLobby(id uint64, cfg config.Config, resolver MapResolver, allocator *ports.Allocator, logger zerolog.Logger) *Lobby {
	return &Lobby{
		ID:       id,
		Config:   cfg,
		resolver: resolver,
		ports:    allocator,
		logger:   logger.With().Uint64("lobby_id", id).Logger(),
	}
}

// ErrLobbyFull is returned by Join/AddComputer once participants+computers
// would exceed the configured max_players (spec §3's Lobby invariant:
// participants.len() + computers.len() <= map.max_players).
var ErrLobbyFull = fmt.Errorf("game: lobby is full")

// occupancy returns the current participants+computers count.
func (l *Lobby) occupancy() int { return len(l.participants) + len(l.computers) }

// Join accepts a participant into the lobby; client and joinReq are stashed
// until Start. It refuses once the lobby has reached max_players.
func (l *Lobby) Join(player *Player, joinReq wire.Request) error {
	if l.occupancy() >= l.Config.MatchDefaults.Game.MaxPlayers {
		return ErrLobbyFull
	}
	l.participants = append(l.participants, &joinedParticipant{player: player, joinReq: joinReq})
	return nil
}

// AddComputer adds a computer player slot, subject to the same max_players
// cap as Join.
func (l *Lobby) AddComputer(race sc2types.Race, difficulty sc2types.Difficulty) error {
	if l.occupancy() >= l.Config.MatchDefaults.Game.MaxPlayers {
		return ErrLobbyFull
	}
	l.computers = append(l.computers, ComputerSlot{Race: race, Difficulty: difficulty})
	return nil
}

// IsValid reports whether the lobby has at least one participant.
func (l *Lobby) IsValid() bool { return len(l.participants) > 0 }

// Close drops every participant, killing their engines. Used on any
// handshake failure or operator teardown; clients are not returned to the
// playlist because their join request has already been consumed (spec
// §4.5's failure semantics).
func (l *Lobby) Close() {
	for _, jp := range l.participants {
		jp.player.Close()
	}
	l.participants = nil
	l.computers = nil
}

// Start runs the two-phase create-game/join-all handshake and, on success,
// returns a Game ready to be run. On any failure it closes the lobby
// (killing every participant's engine) and returns a LobbyError.
func (l *Lobby) Start() (*Game, error) {
	mapPath, ok := l.resolver.FindMap(l.Config.MatchDefaults.Game.MapName)
	if !ok {
		l.Close()
		return nil, &LobbyError{Phase: "resolve_map", Message: fmt.Sprintf("map %q not found", l.Config.MatchDefaults.Game.MapName)}
	}

	createReq := l.buildCreateGameRequest(mapPath)

	first := l.participants[0]
	createResp, err := first.player.SC2Query(createReq)
	if err != nil {
		l.Close()
		return nil, &LobbyError{Phase: "create_game", Message: err.Error()}
	}
	if !createResp.IsCreateGameOK() {
		l.Close()
		return nil, &LobbyError{Phase: "create_game", Message: createResp.CreateGameError}
	}

	portCfg, err := l.ports.Reserve(len(l.participants) - 1)
	if err != nil {
		l.Close()
		return nil, &LobbyError{Phase: "allocate_ports", Message: err.Error()}
	}

	joinRequests := make([]wire.Request, len(l.participants))
	for i, jp := range l.participants {
		req := jp.joinReq
		req.PortConfig = &wire.PortConfig{
			SharedPort:  portCfg.SharedPort,
			ServerPorts: portCfg.ServerPorts,
			ClientPorts: portCfg.ClientPorts,
		}
		req.SharedPortHost = i == 0
		joinRequests[i] = req
	}

	// Send every JoinGame request before reading any response: the engines
	// rendezvous on the shared ports among themselves, so a sequential
	// send-then-wait would deadlock (spec §4.5 steps 5-6).
	responses := make([]wire.Response, len(l.participants))
	var g errgroup.Group
	for i := range l.participants {
		i := i
		g.Go(func() error {
			resp, err := l.participants[i].player.SC2Query(joinRequests[i])
			if err != nil {
				return err
			}
			responses[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		l.Close()
		return nil, &LobbyError{Phase: "join_game", Message: err.Error()}
	}

	for i, resp := range responses {
		if !resp.IsJoinGameOK() {
			l.Close()
			return nil, &LobbyError{Phase: "join_game", Message: resp.JoinGameError}
		}
		if err := l.participants[i].player.ClientRespond(resp); err != nil {
			l.Close()
			return nil, &LobbyError{Phase: "join_game", Message: err.Error()}
		}
	}

	players := make([]*Player, len(l.participants))
	for i, jp := range l.participants {
		players[i] = jp.player
	}
	l.participants = nil

	return NewGame(l.ID, l.Config, players), nil
}

func (l *Lobby) buildCreateGameRequest(mapPath string) wire.Request {
	setups := make([]wire.CreateGamePlayer, 0, len(l.participants)+len(l.computers))
	for _, jp := range l.participants {
		setups = append(setups, wire.CreateGamePlayer{IsComputer: false, Race: jp.joinReq.Race})
	}
	for _, c := range l.computers {
		setups = append(setups, wire.CreateGamePlayer{IsComputer: true, Race: c.Race, Difficulty: c.Difficulty})
	}

	return wire.Request{
		Kind:         wire.KindCreateGame,
		MapPath:      mapPath,
		Realtime:     l.Config.MatchDefaults.Game.Realtime,
		DisableFog:   l.Config.MatchDefaults.Game.DisableFog,
		RandomSeed:   l.Config.MatchDefaults.Game.RandomSeed,
		PlayerSetups: setups,
	}
}
