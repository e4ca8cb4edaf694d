package game

import (
	"runtime/debug"

	"github.com/lguibr/sc2-proxy/actorkit"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Game owns the Players for one match and aggregates their outcomes into a
// Result (spec §4.6). It runs as an actorkit.Actor: Supervisor -> Game
// control (fromSupervisor) and Player -> Game reporting (toGame) both arrive
// as ordinary actor messages, while the final Result crosses back out of the
// actor system on a plain channel, mirroring the Supervisor<->Game
// GameHandle design note in spec §9.
type Game struct {
	id      uint64
	cfg     config.Config
	players []*Player

	outcomes         []*sc2types.Outcome
	gameOverReceived bool
	finished         bool

	quit chan struct{}
	done chan playerRunResult

	resultTx chan<- Result
	logger   zerolog.Logger
}

// NewGame builds a Game for players, bound to id and a Config snapshot.
func NewGame(id uint64, cfg config.Config, players []*Player) *Game {
	return &Game{
		id:       id,
		cfg:      cfg,
		players:  players,
		outcomes: make([]*sc2types.Outcome, len(players)),
		quit:     make(chan struct{}),
		done:     make(chan playerRunResult, len(players)),
		logger:   log.With().Uint64("game_id", id).Logger(),
	}
}

// ID returns the GameId this Game is bound to, used by the Supervisor to
// key its games map (spec §3's GameId invariant).
func (g *Game) ID() uint64 { return g.id }

// SendQuit delivers a FromSupervisor::Quit command to the Game at pid (spec
// §4.6, §9's command_tx), exported so the supervisor package can drive Game
// teardown without reaching into this package's unexported message types.
func SendQuit(engine *actorkit.Engine, pid *actorkit.PID) {
	engine.Send(pid, fromSupervisor{quit: true}, nil)
}

// GameProducer returns an actorkit.Producer for g, to be spawned on an
// Engine; resultTx is the Supervisor-owned channel the final Result is
// reported on (spec §9's GameHandle.result_rx).
func GameProducer(g *Game, resultTx chan<- Result) actorkit.Producer {
	return func() actorkit.Actor {
		g.resultTx = resultTx
		return g
	}
}

// Receive implements actorkit.Actor.
func (g *Game) Receive(ctx actorkit.Context) {
	switch msg := ctx.Message().(type) {
	case actorkit.Started:
		for i, p := range g.players {
			go g.runPlayer(ctx.Engine(), ctx.Self(), i, p)
		}

	case toGame:
		g.applyToGame(msg)
		if g.allOutcomesSet() {
			g.finish(ctx, EndNormal)
		}

	case fromSupervisor:
		if msg.quit {
			g.finish(ctx, EndQuitRequested)
		}

	case actorkit.Stopping, actorkit.Stopped:
		// Cleanup already ran in finish; nothing further to do.
	}
}

func (g *Game) runPlayer(engine *actorkit.Engine, self *actorkit.PID, index int, p *Player) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("player task panicked")
			engine.Send(self, toGame{fromIndex: index, kind: toGamePanicked}, nil)
			g.done <- playerRunResult{index: index, player: p, survived: false}
		}
	}()
	result := p.Run(engine, self, index, g.quit, g.cfg.MatchDefaults.RequestLimits, g.cfg.MatchDefaults.TimeLimits)
	g.done <- result
}

// applyToGame folds one Player -> Game message into the outcome vector
// (spec §4.6 step 4, §5's ordering guarantees).
func (g *Game) applyToGame(msg toGame) {
	switch msg.kind {
	case toGameGameOver:
		if g.gameOverReceived {
			return // idempotent: engines may emit results more than once.
		}
		g.gameOverReceived = true
		for _, r := range sortedOutcomes(msg.results) {
			idx := int(r.PlayerID) - 1
			if idx < 0 || idx >= len(g.outcomes) {
				continue
			}
			outcome := r.Outcome
			g.outcomes[idx] = &outcome
		}

	case toGameLeftGame, toGameQuitBeforeLeave, toGameSC2UnexpectedClose, toGameUnexpectedClose, toGamePanicked, toGameTimeLimitExceeded:
		if g.outcomes[msg.fromIndex] != nil {
			return // slot already authoritative; later terminal messages discarded.
		}
		defeat := sc2types.OutcomeDefeat
		g.outcomes[msg.fromIndex] = &defeat
	}
}

func (g *Game) allOutcomesSet() bool {
	for _, o := range g.outcomes {
		if o == nil {
			return false
		}
	}
	return true
}

// finish reports the Result, tears down every Player and stops the actor.
// It is called at most once per Game (both call sites are mutually
// exclusive: normal completion or a Supervisor Quit).
func (g *Game) finish(ctx actorkit.Context, reason EndReason) {
	if g.finished {
		return
	}
	g.finished = true
	close(g.quit)

	// Players that already reported a terminal result need no further
	// action (closing a surviving Player's client socket here would break
	// its trip back to the playlist). Anyone still running is force-closed
	// so its blocked socket read returns immediately instead of waiting for
	// the client or engine to act on its own (spec §4.6 step 4's
	// "kill remaining engines").
	finishedByIndex := make(map[int]playerRunResult, len(g.players))
drain:
	for {
		select {
		case r := <-g.done:
			finishedByIndex[r.index] = r
		default:
			break drain
		}
	}
	for i, p := range g.players {
		if _, done := finishedByIndex[i]; !done {
			p.Close()
		}
	}
	for len(finishedByIndex) < len(g.players) {
		r := <-g.done
		finishedByIndex[r.index] = r
	}

	survivors := make([]*Player, 0, len(g.players))
	for _, r := range finishedByIndex {
		if r.survived {
			survivors = append(survivors, r.player)
		}
	}

	var perPlayer []sc2types.Outcome
	if reason == EndNormal {
		perPlayer = make([]sc2types.Outcome, len(g.outcomes))
		for i, o := range g.outcomes {
			perPlayer[i] = *o
		}
	}

	result := Result{
		GameID:    g.id,
		EndReason: reason,
		PerPlayer: perPlayer,
		Survivors: survivors,
	}

	// resultTx is sized 1 and polled once per Supervisor Tick (spec §4.6
	// step 4), so a blocked send here only happens if the Supervisor that
	// owns the receiving end is gone — a fatal condition, not a transient
	// one. The actor is tearing itself down either way (see DESIGN.md's
	// `game` entry), so this still degrades to a dropped Result rather than
	// a panic or os.Exit from inside the actor's Receive goroutine.
	select {
	case g.resultTx <- result:
	default:
		g.logger.Error().Msg("result channel unreachable: supervisor gone, dropping final result")
	}

	ctx.Engine().Stop(ctx.Self())
}
