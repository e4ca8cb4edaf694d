package supervisor

import (
	"fmt"
	"strings"

	"github.com/lguibr/sc2-proxy/actorkit"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/game"
	"github.com/lguibr/sc2-proxy/policy"
	"github.com/lguibr/sc2-proxy/procadapter"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/lguibr/sc2-proxy/wire"
)

func playerDataFromRequest(req wire.Request) game.PlayerData {
	return game.PlayerData{Race: req.Race, Name: req.PlayerName, InterfaceOptions: req.InterfaceOptions}
}

// buildProcessOptions translates the opaque [process] config table into the
// concrete procadapter.Options one spawned engine needs (spec §4.2).
func buildProcessOptions(cfg config.Process, host string, port int) procadapter.Options {
	opts := procadapter.Options{Host: host, Port: port, Command: cfg.Options["command"]}
	if opts.Command == "" {
		opts.Command = "sc2engine"
	}
	if args := cfg.Options["args"]; args != "" {
		opts.Args = strings.Fields(args)
	}
	return opts
}

// newPlayer spawns a dedicated engine process for one joining client (spec
// §4.4's Player.new). It enforces match_defaults.game.allowed_interfaces
// (spec §9) at this single choke point, reached by every matchmaking mode
// including RemoteController's deferred AddToLobby join.
func (s *Supervisor) newPlayer(entry *playlistEntry, req wire.Request) (*game.Player, error) {
	if !policy.IsInterfaceAllowed(req.InterfaceOptions, s.cfg.MatchDefaults.Game.AllowedInterfaces) {
		return nil, fmt.Errorf("supervisor: interface options not permitted by allowed_interfaces")
	}
	port, err := s.ports.ReserveOne()
	if err != nil {
		return nil, fmt.Errorf("supervisor: could not reserve an engine port: %w", err)
	}
	opts := buildProcessOptions(s.cfg.Process, "127.0.0.1", port)
	return game.NewPlayer(s.spawner, opts, entry.conn, playerDataFromRequest(req), s.logger)
}

func (s *Supervisor) allocGameID() uint64 {
	s.nextGameID++
	return s.nextGameID
}

// matchmake runs one join request through the configured matchmaking mode
// (spec §4.7's Matchmaking, a tagged-variant switch per spec §9's design
// note rather than subtype polymorphism). It always removes entry from the
// playlist except under RemoteController, which parks it with pending_join
// set instead.
func (s *Supervisor) matchmake(i int, entry *playlistEntry, req wire.Request) {
	if s.cfg.Matchmaking.Mode == config.ModeRemoteController {
		entry.pendingJoin = &req
		entry.data = playerDataFromRequest(req)
		entry.startRead()
		return
	}

	if err := s.cfg.Check(s.resolver); err != nil {
		s.logger.Error().Err(err).Str("client", string(entry.id)).Msg("refusing join: invalid config")
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
		return
	}

	player, err := s.newPlayer(entry, req)
	if err != nil {
		s.logger.Error().Err(err).Str("client", string(entry.id)).Msg("engine unavailable; dropping joining client")
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
		return
	}
	s.removeFromPlaylist(i)

	switch s.cfg.Matchmaking.Mode {
	case config.ModeVsBuiltinAI:
		lobby := game.NewLobby(s.allocGameID(), s.cfg, s.resolver, s.ports, s.logger)
		if !s.joinOrReject(lobby, player, req) {
			return
		}
		if err := lobby.AddComputer(sc2types.Race(s.cfg.Matchmaking.CPURace), sc2types.Difficulty(s.cfg.Matchmaking.CPUDifficulty)); err != nil {
			s.logger.Error().Err(err).Uint64("lobby_id", lobby.ID).Msg("refusing computer slot: lobby full")
		}
		s.startLobby(lobby)

	case config.ModeSingleplayer:
		lobby := game.NewLobby(s.allocGameID(), s.cfg, s.resolver, s.ports, s.logger)
		if !s.joinOrReject(lobby, player, req) {
			return
		}
		s.startLobby(lobby)

	case config.ModePairs:
		if len(s.lobbyOrder) > 0 {
			id := s.lobbyOrder[0]
			lobby := s.lobbies[id]
			if !s.joinOrReject(lobby, player, req) {
				return
			}
			delete(s.lobbies, id)
			s.lobbyOrder = s.lobbyOrder[1:]
			s.startLobby(lobby)
			return
		}
		id := s.allocGameID()
		lobby := game.NewLobby(id, s.cfg, s.resolver, s.ports, s.logger)
		if !s.joinOrReject(lobby, player, req) {
			return
		}
		s.lobbies[id] = lobby
		s.lobbyOrder = append(s.lobbyOrder, id)

	default:
		s.logger.Error().Str("mode", string(s.cfg.Matchmaking.Mode)).Msg("unknown matchmaking mode; dropping client")
		player.Close()
	}
}

// joinOrReject joins player into lobby, closing the player and logging if
// the lobby has already reached max_players (spec §3's Lobby invariant). It
// reports whether the join succeeded.
func (s *Supervisor) joinOrReject(lobby *game.Lobby, player *game.Player, req wire.Request) bool {
	if err := lobby.Join(player, req); err != nil {
		s.logger.Error().Err(err).Uint64("lobby_id", lobby.ID).Msg("refusing join: lobby full")
		player.Close()
		return false
	}
	return true
}

func (s *Supervisor) startLobby(lobby *game.Lobby) {
	g, err := lobby.Start()
	if err != nil {
		// Lobby.Start has already killed every engine and closed every
		// client socket spawned in this lobby on any failure path.
		s.logger.Error().Err(err).Uint64("lobby_id", lobby.ID).Msg("lobby handshake failed")
		return
	}
	s.registerGame(g)
}

func (s *Supervisor) registerGame(g *game.Game) {
	resultCh := make(chan game.Result, 1)
	pid := s.engine.Spawn(actorkit.NewProps(game.GameProducer(g, resultCh)))
	s.games[g.ID()] = &runningGame{pid: pid, resultCh: resultCh}
}

func (s *Supervisor) removeLobbyFromOrder(id uint64) {
	for i, lid := range s.lobbyOrder {
		if lid == id {
			s.lobbyOrder = append(s.lobbyOrder[:i], s.lobbyOrder[i+1:]...)
			return
		}
	}
}
