package game

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// newWSPair starts a short-lived test server and returns two ends of one
// WebSocket connection: serverSide (the accepted/upgraded end) and
// clientSide (the dialed-out end). Mirrors the teacher's httptest-based
// websocket test setup (server/handlers_test.go), adapted to gorilla.
func newWSPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		accepted <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	server := <-accepted
	t.Cleanup(func() { server.Close() })

	return server, client
}
