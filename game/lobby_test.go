package game

import (
	"fmt"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/config"
	"github.com/lguibr/sc2-proxy/ports"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/lguibr/sc2-proxy/wire"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMapResolver struct{ path string }

func (f fakeMapResolver) FindMap(name string) (string, bool) {
	if f.path == "" {
		return "", false
	}
	return f.path, true
}

func newLobbyPlayer(t *testing.T) (*Player, *websocket.Conn, *websocket.Conn) {
	clientServer, clientDial := newWSPair(t)
	engineServer, engineDial := newWSPair(t)
	p := &Player{ClientConn: clientServer, engine: &fakeEngineHandle{}, engineConn: engineDial}
	return p, clientDial, engineServer
}

func TestLobbyStartFailsWhenMapNotFound(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MatchDefaults.Game.MapName = "Nonexistent"
	l := NewLobby(1, cfg, fakeMapResolver{}, ports.NewAllocator("127.0.0.1"), zerolog.Nop())

	p, _, _ := newLobbyPlayer(t)
	require.NoError(t, l.Join(p, wire.Request{Kind: wire.KindJoinGame, Race: sc2types.RaceTerran}))

	_, err := l.Start()
	require.Error(t, err)
	var lobbyErr *LobbyError
	assert.ErrorAs(t, err, &lobbyErr)
	assert.Equal(t, "resolve_map", lobbyErr.Phase)
}

func TestLobbyJoinRejectsOnceMaxPlayersReached(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MatchDefaults.Game.MaxPlayers = 1
	l := NewLobby(3, cfg, fakeMapResolver{path: "/maps/Acropolis.SC2Map"}, ports.NewAllocator("127.0.0.1"), zerolog.Nop())

	p1, _, _ := newLobbyPlayer(t)
	require.NoError(t, l.Join(p1, wire.Request{Kind: wire.KindJoinGame, Race: sc2types.RaceTerran}))

	p2, _, _ := newLobbyPlayer(t)
	err := l.Join(p2, wire.Request{Kind: wire.KindJoinGame, Race: sc2types.RaceZerg})
	assert.ErrorIs(t, err, ErrLobbyFull)

	err = l.AddComputer(sc2types.RaceProtoss, sc2types.DifficultyMedium)
	assert.ErrorIs(t, err, ErrLobbyFull)
}

func TestLobbyStartSucceedsAndProducesGame(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MatchDefaults.Game.MapName = "Acropolis"
	l := NewLobby(2, cfg, fakeMapResolver{path: "/maps/Acropolis.SC2Map"}, ports.NewAllocator("127.0.0.1"), zerolog.Nop())

	p1, _, engine1 := newLobbyPlayer(t)
	p2, _, engine2 := newLobbyPlayer(t)
	require.NoError(t, l.Join(p1, wire.Request{Kind: wire.KindJoinGame, Race: sc2types.RaceTerran}))
	require.NoError(t, l.Join(p2, wire.Request{Kind: wire.KindJoinGame, Race: sc2types.RaceZerg}))

	done := make(chan error, 1)
	go func() {
		// Phase 1: only the first participant's engine gets CreateGame.
		_, raw, err := engine1.ReadMessage()
		if err != nil {
			done <- err
			return
		}
		req, err := wire.DecodeRequest(raw)
		if err != nil {
			done <- err
			return
		}
		if !req.IsCreateGame() {
			done <- fmt.Errorf("expected CreateGame, got %v", req.Kind)
			return
		}
		resp, _ := wire.Encode(wire.Response{Kind: wire.KindCreateGame})
		if err := engine1.WriteMessage(websocket.BinaryMessage, resp); err != nil {
			done <- err
			return
		}

		// Phase 2: both engines receive JoinGame in parallel, in any order.
		for _, eng := range []*websocket.Conn{engine1, engine2} {
			_, raw, err := eng.ReadMessage()
			if err != nil {
				done <- err
				return
			}
			jreq, err := wire.DecodeRequest(raw)
			if err != nil {
				done <- err
				return
			}
			if !jreq.IsJoinGame() {
				done <- fmt.Errorf("expected JoinGame, got %v", jreq.Kind)
				return
			}
			jresp, _ := wire.Encode(wire.Response{Kind: wire.KindJoinGame})
			if err := eng.WriteMessage(websocket.BinaryMessage, jresp); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	g, err := l.Start()
	require.NoError(t, <-done)
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Equal(t, uint64(2), g.id)
	assert.Len(t, g.players, 2)
}
