// Package server hosts the proxy's three external-facing tasks (spec §5):
// the Proxy Listener, the Remote Control Server and a read-only HTTP
// diagnostics endpoint. None of them touch the Supervisor's collections
// directly — they only ever hand it work over a channel, the same
// not-shared-state discipline spec §5 requires of every cross-task
// communication.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/supervisor"
	"github.com/rs/zerolog"
)

// GameSubmitter is the Supervisor's side-channel used by the Proxy Listener,
// narrowed to the one method this package needs.
type GameSubmitter interface {
	Submit(conn *websocket.Conn)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ProxyListener binds the client-facing WebSocket endpoint (spec §4.8): on
// every accepted connection it upgrades the HTTP request and hands the
// resulting socket to the Supervisor, never touching it again itself.
type ProxyListener struct {
	addr string
	sup  GameSubmitter
	srv  *http.Server
	log  zerolog.Logger
}

// NewProxyListener builds a ProxyListener bound to addr ("host:port").
func NewProxyListener(addr string, sup GameSubmitter, logger zerolog.Logger) *ProxyListener {
	return &ProxyListener{addr: addr, sup: sup, log: logger.With().Str("component", "proxy_listener").Logger()}
}

// ListenAndServe blocks accepting WebSocket upgrades at addr until ctx is
// cancelled (spec §4.8's "a dedicated task"). Each accept failure is logged
// and the loop continues, exactly as the spec requires.
func (p *ProxyListener) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", p.handleUpgrade)
	p.srv = &http.Server{Addr: p.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- p.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = p.srv.Close()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (p *ProxyListener) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Error().Err(err).Str("remote", r.RemoteAddr).Msg("upgrade failed")
		return
	}
	p.sup.Submit(conn)
}
