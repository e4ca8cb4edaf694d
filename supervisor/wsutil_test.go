package supervisor_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{}

// newSupervisorWSPair mirrors the game package's newWSPair: it returns the
// accepted server-side connection (handed to Supervisor.Submit, standing in
// for the Proxy Listener) and the dialed client-side connection (standing
// in for a bot).
func newSupervisorWSPair(t *testing.T) (serverSide, clientSide *websocket.Conn) {
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
