// Package supervisor implements the Supervisor (spec §4.7): the
// single-threaded control loop owning the playlist, lobbies and running
// games, driving matchmaking and servicing the Remote Control side-channel.
// Unlike Game it is deliberately not an actorkit.Actor — its
// three update phases run from one goroutine, polling channels
// non-blockingly exactly as spec §5 requires ("the Supervisor never
// blocks").
package supervisor

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/actorkit"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/game"
	"github.com/lguibr/sc2-proxy/procadapter"
	"github.com/lguibr/sc2-proxy/ports"
	"github.com/lguibr/sc2-proxy/wire"
	"github.com/rs/zerolog"
)

// tickInterval is the Supervisor's control loop period (spec §5's "~100ms").
const tickInterval = 100 * time.Millisecond

// incomingQueueSize bounds the Proxy Listener -> Supervisor connection
// queue; spec §4.8 describes it as "unbounded", approximated here by a
// generously sized buffered channel (documented in DESIGN.md).
const incomingQueueSize = 4096

// runningGame is the Supervisor's side of spec §9's GameHandle: pid lets it
// send FromSupervisor::Quit, resultCh is where the Game reports its
// GameResult once finished.
type runningGame struct {
	pid      *actorkit.PID
	resultCh chan game.Result
}

// Supervisor owns the playlist, pending lobbies and running games (spec
// §3's Ownership invariant: these three collections are never shared).
type Supervisor struct {
	cfg      config.Config
	resolver game.MapResolver
	ports    *ports.Allocator
	spawner  procadapter.Spawner
	engine   *actorkit.Engine
	logger   zerolog.Logger

	nextGameID uint64

	playlist   []*playlistEntry
	lobbies    map[uint64]*game.Lobby
	lobbyOrder []uint64
	games      map[uint64]*runningGame

	incoming chan *websocket.Conn

	remoteReq  chan RemoteRequest
	remoteResp chan RemoteResponse

	quit bool
}

// New builds a Supervisor. resolver, allocator, spawner and engine are the
// collaborators every Lobby/Player it creates will be bound to.
func New(cfg config.Config, resolver game.MapResolver, allocator *ports.Allocator, spawner procadapter.Spawner, engine *actorkit.Engine, logger zerolog.Logger) *Supervisor {
	return &Supervisor{
		cfg:        cfg,
		resolver:   resolver,
		ports:      allocator,
		spawner:    spawner,
		engine:     engine,
		logger:     logger.With().Str("component", "supervisor").Logger(),
		lobbies:    make(map[uint64]*game.Lobby),
		games:      make(map[uint64]*runningGame),
		incoming:   make(chan *websocket.Conn, incomingQueueSize),
		remoteReq:  make(chan RemoteRequest, 1),
		remoteResp: make(chan RemoteResponse, 1),
	}
}

// Submit hands an upgraded client connection to the Supervisor, called by
// the Proxy Listener's accept loop (spec §4.8).
func (s *Supervisor) Submit(conn *websocket.Conn) {
	select {
	case s.incoming <- conn:
	default:
		s.logger.Error().Msg("incoming connection queue full; dropping connection")
		_ = conn.Close()
	}
}

// RemoteRequests returns the send side of the Remote Control request
// channel (spec §4.9's "two channels... plus an update channel").
func (s *Supervisor) RemoteRequests() chan<- RemoteRequest { return s.remoteReq }

// RemoteResponses returns the receive side of the Remote Control response
// channel.
func (s *Supervisor) RemoteResponses() <-chan RemoteResponse { return s.remoteResp }

// Run drives the control loop at tickInterval until ctx is cancelled or a
// Remote Control Quit request is processed.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.Close()
			return
		case <-ticker.C:
			s.Tick()
			if s.quit {
				s.Close()
				return
			}
		}
	}
}

// Tick runs one pass of the three update phases named in spec §4.7.
func (s *Supervisor) Tick() {
	s.acceptIncoming()
	s.updatePlaylist()
	s.updateGames()
	s.updateRemote()
}

func (s *Supervisor) acceptIncoming() {
	for {
		select {
		case conn := <-s.incoming:
			s.playlist = append(s.playlist, newPlaylistEntry(conn))
		default:
			return
		}
	}
}

// updatePlaylist implements spec §4.7's update_playlist(): reverse index
// order so a removal never skips the next entry to examine.
func (s *Supervisor) updatePlaylist() {
	for i := len(s.playlist) - 1; i >= 0; i-- {
		entry := s.playlist[i]
		select {
		case out := <-entry.results:
			s.handlePlaylistRead(i, entry, out)
		default:
			// Socket would block: leave untouched.
		}
	}
}

func (s *Supervisor) handlePlaylistRead(i int, entry *playlistEntry, out readOutcome) {
	if out.err != nil {
		s.logger.Debug().Str("client", string(entry.id)).Err(out.err).Msg("dropping playlist client")
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
		return
	}

	req := out.req
	switch {
	case req.IsQuit():
		_ = entry.respond(wire.QuitAckFrame())
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
	case req.IsPing():
		_ = entry.respond(wire.PongFrame())
		entry.startRead()
	case req.IsJoinGame():
		s.matchmake(i, entry, req)
	default:
		s.logger.Debug().Str("client", string(entry.id)).Str("kind", string(req.Kind)).Msg("dropping client: unsupported playlist request")
		_ = entry.conn.Close()
		s.removeFromPlaylist(i)
	}
}

// removeFromPlaylist only drops the bookkeeping entry; callers close (or
// deliberately keep open, when handing the socket to a Player) the
// underlying connection themselves.
func (s *Supervisor) removeFromPlaylist(i int) {
	s.playlist = append(s.playlist[:i], s.playlist[i+1:]...)
}

func (s *Supervisor) findPlaylistIndex(id ClientID) int {
	for i, e := range s.playlist {
		if e.id == id {
			return i
		}
	}
	return -1
}

// updateGames implements spec §4.7's update_games(): non-blocking poll of
// every running game's result channel.
func (s *Supervisor) updateGames() {
	for id, rg := range s.games {
		select {
		case result := <-rg.resultCh:
			s.finishGame(id, result)
		default:
		}
	}
}

func (s *Supervisor) finishGame(id uint64, result game.Result) {
	for _, p := range result.Survivors {
		conn, err := p.ExtractClient()
		if err != nil {
			s.logger.Error().Uint64("game_id", id).Err(err).Msg("survivor could not be recycled to playlist")
			p.Close()
			continue
		}
		s.playlist = append(s.playlist, newPlaylistEntry(conn))
	}
	s.logger.Info().Uint64("game_id", id).Str("end_reason", string(result.EndReason)).Msg("game finished")
	delete(s.games, id)
}

// updateRemote implements spec §4.7's update_remote(): dispatch at most one
// pending Remote Control request per tick.
func (s *Supervisor) updateRemote() {
	select {
	case req := <-s.remoteReq:
		resp := s.handleRemoteRequest(req)
		select {
		case s.remoteResp <- resp:
		default:
			s.logger.Error().Msg("remote response channel full; dropping response")
		}
		if req.Kind == ReqQuit {
			s.quit = true
		}
	default:
	}
}

// Counts returns the current size of the playlist, pending-lobby and
// running-game collections, used by the HTTP diagnostics endpoint and by
// tests to observe Tick's effect without reaching into unexported state.
func (s *Supervisor) Counts() (playlist, lobbies, games int) {
	return len(s.playlist), len(s.lobbies), len(s.games)
}

// Close tears the Supervisor down: every playlist socket is closed, every
// pending lobby is closed, and every running game is asked to quit
// (cooperative, not awaited — the process is exiting regardless).
func (s *Supervisor) Close() {
	for _, entry := range s.playlist {
		_ = entry.conn.Close()
	}
	s.playlist = nil

	for _, lobby := range s.lobbies {
		lobby.Close()
	}
	s.lobbies = make(map[uint64]*game.Lobby)
	s.lobbyOrder = nil

	for _, rg := range s.games {
		game.SendQuit(s.engine, rg.pid)
	}
}
