package game

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/actorkit"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/policy"
	"github.com/lguibr/sc2-proxy/procadapter"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/lguibr/sc2-proxy/wire"
	"github.com/rs/zerolog"
)

// Player bridges one client socket, one engine subprocess and (once moved
// into a Game) a channel back to that Game (spec §4.4, §3's Player). It is
// created by a Lobby's join, not spawned as an actorkit.Actor itself: its
// forwarding loop blocks on socket I/O, which fits a plain goroutine better
// than an actor mailbox (mirroring how the teacher's ConnectionHandlerActor
// keeps its readLoop as a bare goroutine feeding results back through
// engine.Send rather than modeling the read itself as actor state).
type Player struct {
	Data PlayerData

	ClientConn *websocket.Conn
	engine     procadapter.Handle
	engineConn *websocket.Conn

	lastStatus sc2types.Status
	logger     zerolog.Logger
}

// ErrEngineUnavailable is returned by NewPlayer when the engine process
// could not be spawned or connected to.
type ErrEngineUnavailable struct{ Err error }

func (e *ErrEngineUnavailable) Error() string {
	return fmt.Sprintf("game: engine unavailable: %v", e.Err)
}
func (e *ErrEngineUnavailable) Unwrap() error { return e.Err }

// NewPlayer spawns the participant's engine, connects to it, and returns a
// Player ready to be handed to a Lobby handshake. On any failure it kills
// any partially-started process and returns ErrEngineUnavailable.
func NewPlayer(spawner procadapter.Spawner, opts procadapter.Options, client *websocket.Conn, data PlayerData, logger zerolog.Logger) (*Player, error) {
	handle, err := spawner.Spawn(context.Background(), opts)
	if err != nil {
		return nil, &ErrEngineUnavailable{Err: err}
	}
	conn, err := handle.Connect(context.Background())
	if err != nil {
		_ = handle.Kill()
		return nil, &ErrEngineUnavailable{Err: err}
	}
	return &Player{
		Data:       data,
		ClientConn: client,
		engine:     handle,
		engineConn: conn,
		logger:     logger.With().Str("player", data.Name).Logger(),
	}, nil
}

// SC2Query sends req to the engine and awaits its next frame.
func (p *Player) SC2Query(req wire.Request) (wire.Response, error) {
	raw, err := wire.EncodeRequest(req)
	if err != nil {
		return wire.Response{}, err
	}
	if err := p.engineConn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		return wire.Response{}, err
	}
	mt, data, err := p.engineConn.ReadMessage()
	if err != nil {
		return wire.Response{}, err
	}
	if wire.ClassifyFrame(mt) != wire.FrameBinary {
		return wire.Response{}, fmt.Errorf("game: non-binary frame from engine")
	}
	return wire.DecodeResponse(data)
}

// ClientRespond forwards resp to the client socket.
func (p *Player) ClientRespond(resp wire.Response) error {
	raw, err := wire.Encode(resp)
	if err != nil {
		return err
	}
	return p.ClientConn.WriteMessage(websocket.BinaryMessage, raw)
}

// ExtractClient returns the client socket for recycling into the playlist.
// It requires the last cached engine status to be Launched, i.e. the match
// never actually started (spec §4.4).
func (p *Player) ExtractClient() (*websocket.Conn, error) {
	if p.lastStatus != sc2types.StatusLaunched {
		return nil, fmt.Errorf("game: extract_client requires status Launched, got %q", p.lastStatus)
	}
	return p.ClientConn, nil
}

// Close kills the engine process and closes both sockets; used on every
// Lobby/Game failure path.
func (p *Player) Close() {
	if p.engine != nil {
		_ = p.engine.Kill()
	}
	if p.engineConn != nil {
		_ = p.engineConn.Close()
	}
	if p.ClientConn != nil {
		_ = p.ClientConn.Close()
	}
}

// playerRunResult is Run's return value, relayed to the Game goroutine that
// launched it via a plain channel (the Go analogue of awaiting a task).
type playerRunResult struct {
	index    int
	player   *Player
	survived bool
}

// Run is the Player forwarding loop (spec §4.4). It returns
// playerRunResult{survived: true} iff the client left the game voluntarily,
// so the Supervisor can recycle it back to the playlist; survived: false
// otherwise (engine killed). Every exit sends a terminal toGame message
// first, except a stop through the quit channel, which only kills the engine.
func (p *Player) Run(engine *actorkit.Engine, gamePID *actorkit.PID, index int, quit <-chan struct{}, limits config.RequestLimits, timeLimits config.TimeLimits) playerRunResult {
	fail := func(kind toGameKind) playerRunResult {
		engine.Send(gamePID, toGame{fromIndex: index, kind: kind}, nil)
		_ = p.engine.Kill()
		return playerRunResult{index: index, player: p, survived: false}
	}

	for {
		select {
		case <-quit:
			_ = p.engine.Kill()
			return playerRunResult{index: index, player: p, survived: false}
		default:
		}

		mt, raw, err := p.ClientConn.ReadMessage()
		if err != nil {
			return fail(toGameUnexpectedClose)
		}
		switch wire.ClassifyFrame(mt) {
		case wire.FrameClose:
			return fail(toGameUnexpectedClose)
		case wire.FrameBinary:
		default:
			// Non-binary, non-close frame: a protocol violation (spec §4.1).
			return fail(toGameUnexpectedClose)
		}

		req, err := wire.DecodeRequest(raw)
		if err != nil {
			return fail(toGameUnexpectedClose)
		}

		if !policy.IsRequestAllowed(req, limits) {
			_ = p.ClientRespond(wire.ErrorFrame("Proxy: Request denied"))
			continue
		}

		resp, err := p.SC2Query(req)
		if err != nil {
			return fail(toGameSC2UnexpectedClose)
		}

		p.lastStatus = resp.Status

		if err := p.ClientRespond(resp); err != nil {
			return fail(toGameUnexpectedClose)
		}

		switch {
		case resp.IsQuit():
			engine.Send(gamePID, toGame{fromIndex: index, kind: toGameQuitBeforeLeave}, nil)
			_ = p.engine.Wait()
			return playerRunResult{index: index, player: p, survived: false}
		case resp.IsLeaveGame():
			engine.Send(gamePID, toGame{fromIndex: index, kind: toGameLeftGame}, nil)
			return playerRunResult{index: index, player: p, survived: true}
		case resp.HasObservationResults():
			engine.Send(gamePID, toGame{fromIndex: index, kind: toGameGameOver, results: resp.Observation.PlayerResults}, nil)
		case timeLimits.GameLoops != nil && resp.Observation != nil && resp.Observation.GameLoop > *timeLimits.GameLoops:
			// game_loops limit (spec §9's open question): a Player observing
			// the limit exceeded forces its own slot to Defeat rather than
			// waiting on the engine to notice (spec §5).
			return fail(toGameTimeLimitExceeded)
		}
	}
}
