package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// StatusProvider is the Supervisor's side-channel used by the diagnostics
// endpoint, narrowed to the one method this package needs.
type StatusProvider interface {
	Counts() (playlist, lobbies, games int)
}

// statusResponse is the JSON body of GET /status.
type statusResponse struct {
	Playlist int `json:"playlist"`
	Lobbies  int `json:"lobbies"`
	Games    int `json:"games"`
}

// DiagnosticsServer exposes a small read-only HTTP surface (spec §11's
// domain-stack wiring for httprouter): GET /health always reports ok, GET
// /status reports the Supervisor's three collection sizes. All mutation
// stays on the Remote Control RPC socket (spec §4.9); nothing here writes.
type DiagnosticsServer struct {
	addr string
	sup  StatusProvider
	srv  *http.Server
	log  zerolog.Logger
}

// NewDiagnosticsServer builds a DiagnosticsServer bound to addr.
func NewDiagnosticsServer(addr string, sup StatusProvider, logger zerolog.Logger) *DiagnosticsServer {
	return &DiagnosticsServer{addr: addr, sup: sup, log: logger.With().Str("component", "diagnostics").Logger()}
}

// ListenAndServe blocks serving HTTP at addr until ctx is cancelled.
func (d *DiagnosticsServer) ListenAndServe(ctx context.Context) error {
	router := httprouter.New()
	router.GET("/health", d.handleHealth)
	router.GET("/status", d.handleStatus)
	d.srv = &http.Server{Addr: d.addr, Handler: router}

	errCh := make(chan error, 1)
	go func() { errCh <- d.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		_ = d.srv.Close()
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (d *DiagnosticsServer) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (d *DiagnosticsServer) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	playlist, lobbies, games := d.sup.Counts()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{Playlist: playlist, Lobbies: lobbies, Games: games})
}
