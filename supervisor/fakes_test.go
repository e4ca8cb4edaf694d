package supervisor_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/procadapter"
	"github.com/lguibr/sc2-proxy/sc2types"
	"github.com/lguibr/sc2-proxy/wire"
)

// fakeMapResolver stands in for the maps package's Resolver.
type fakeMapResolver struct{ path string }

func (f fakeMapResolver) FindMap(name string) (string, bool) {
	if f.path == "" {
		return "", false
	}
	return f.path, true
}

// fakeSpawner dials the already-running fake engine server at url instead of
// spawning a real subprocess, letting lobby handshake tests run without
// os/exec.
type fakeSpawner struct{ url string }

func (s fakeSpawner) Spawn(ctx context.Context, opts procadapter.Options) (procadapter.Handle, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	return &fakeHandle{conn: conn}, nil
}

type fakeHandle struct{ conn *websocket.Conn }

func (h *fakeHandle) Connect(ctx context.Context) (*websocket.Conn, error) { return h.conn, nil }
func (h *fakeHandle) Kill() error                                         { return h.conn.Close() }
func (h *fakeHandle) Wait() error                                         { return nil }

// startFakeEngine runs a tiny engine double that acks CreateGame and
// JoinGame requests so a lobby handshake can complete end to end; it returns
// the ws:// URL a fakeSpawner dials into.
func startFakeEngine(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		go serveFakeEngine(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func serveFakeEngine(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		req, err := wire.DecodeRequest(raw)
		if err != nil {
			return
		}

		var resp wire.Response
		switch {
		case req.IsCreateGame():
			resp = wire.Response{Kind: wire.KindCreateGame}
		case req.IsJoinGame():
			resp = wire.Response{Kind: wire.KindJoinGame, Status: sc2types.StatusLaunched}
		default:
			resp = wire.Response{Kind: wire.KindStatus, Status: sc2types.StatusLaunched}
		}

		b, err := wire.Encode(resp)
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, b); err != nil {
			return
		}
	}
}
