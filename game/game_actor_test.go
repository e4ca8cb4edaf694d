package game

import (
	"testing"
	"time"

	"github.com/lguibr/sc2-proxy/actorkit"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spawnGame(t *testing.T, n int) (*actorkit.Engine, *actorkit.PID, chan Result) {
	t.Helper()
	engine := actorkit.NewEngine()
	players := make([]*Player, n)
	for i := range players {
		serverSide, _ := newWSPair(t)
		players[i] = &Player{ClientConn: serverSide, engine: &fakeEngineHandle{}}
	}
	g := NewGame(7, config.DefaultConfig(), players)
	resultCh := make(chan Result, 1)
	pid := engine.Spawn(actorkit.NewProps(GameProducer(g, resultCh)))
	t.Cleanup(func() { engine.Shutdown(time.Second) })
	return engine, pid, resultCh
}

func TestGameAppliesGameOverOutcomesSortedByPlayerID(t *testing.T) {
	g := NewGame(1, config.DefaultConfig(), []*Player{{}, {}})
	g.applyToGame(toGame{kind: toGameGameOver, results: []sc2types.PlayerOutcome{
		{PlayerID: 2, Outcome: sc2types.OutcomeDefeat},
		{PlayerID: 1, Outcome: sc2types.OutcomeVictory},
	}})

	require.NotNil(t, g.outcomes[0])
	require.NotNil(t, g.outcomes[1])
	assert.Equal(t, sc2types.OutcomeVictory, *g.outcomes[0])
	assert.Equal(t, sc2types.OutcomeDefeat, *g.outcomes[1])
}

func TestGameIgnoresDuplicateGameOver(t *testing.T) {
	g := NewGame(1, config.DefaultConfig(), []*Player{{}})
	g.applyToGame(toGame{kind: toGameGameOver, results: []sc2types.PlayerOutcome{{PlayerID: 1, Outcome: sc2types.OutcomeVictory}}})
	g.applyToGame(toGame{kind: toGameGameOver, results: []sc2types.PlayerOutcome{{PlayerID: 1, Outcome: sc2types.OutcomeDefeat}}})

	assert.Equal(t, sc2types.OutcomeVictory, *g.outcomes[0])
}

func TestGameTerminalMessageDoesNotOverwriteAuthoritativeSlot(t *testing.T) {
	g := NewGame(1, config.DefaultConfig(), []*Player{{}})
	g.applyToGame(toGame{kind: toGameGameOver, results: []sc2types.PlayerOutcome{{PlayerID: 1, Outcome: sc2types.OutcomeVictory}}})
	g.applyToGame(toGame{fromIndex: 0, kind: toGameLeftGame})

	assert.Equal(t, sc2types.OutcomeVictory, *g.outcomes[0])
}

func TestGameTerminalMessageSetsDefeatOnce(t *testing.T) {
	g := NewGame(1, config.DefaultConfig(), []*Player{{}, {}})
	g.applyToGame(toGame{fromIndex: 0, kind: toGameUnexpectedClose})
	assert.Equal(t, sc2types.OutcomeDefeat, *g.outcomes[0])
	assert.Nil(t, g.outcomes[1])
	assert.False(t, g.allOutcomesSet())
}

func TestGameFromSupervisorQuitReportsEmptyResult(t *testing.T) {
	engine, pid, resultCh := spawnGame(t, 2)

	engine.Send(pid, fromSupervisor{quit: true}, nil)

	select {
	case r := <-resultCh:
		assert.Equal(t, EndQuitRequested, r.EndReason)
		assert.Empty(t, r.PerPlayer)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for quit result")
	}
}
