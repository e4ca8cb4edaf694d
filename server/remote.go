package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/lguibr/sc2-proxy/supervisor"
	"github.com/rs/zerolog"
)

// RemoteDispatcher is the Supervisor's side-channel used by the Remote
// Control Server, narrowed to the two methods this package needs.
type RemoteDispatcher interface {
	RemoteRequests() chan<- supervisor.RemoteRequest
	RemoteResponses() <-chan supervisor.RemoteResponse
}

// RemoteControlServer implements spec §4.9: a TCP server accepting at most
// one connection at a time (additional accepts wait their turn), speaking
// newline-delimited JSON, one request per line and one response per line.
type RemoteControlServer struct {
	addr string
	sup  RemoteDispatcher
	log  zerolog.Logger
}

// NewRemoteControlServer builds a RemoteControlServer bound to addr.
func NewRemoteControlServer(addr string, sup RemoteDispatcher, logger zerolog.Logger) *RemoteControlServer {
	return &RemoteControlServer{addr: addr, sup: sup, log: logger.With().Str("component", "remote_control").Logger()}
}

// ListenAndServe accepts connections at addr until ctx is cancelled, serving
// one at a time: Accept only returns control to the loop once the current
// connection's line loop has ended, which is exactly "additional accepts
// wait" (spec §4.9). Cancelling ctx also closes the connection currently
// being served, so ListenAndServe returns even while a client is connected.
func (s *RemoteControlServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: remote control listen: %w", err)
	}

	var mu sync.Mutex
	var current net.Conn
	go func() {
		<-ctx.Done()
		_ = ln.Close()
		mu.Lock()
		if current != nil {
			_ = current.Close()
		}
		mu.Unlock()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Error().Err(err).Msg("accept failed")
			continue
		}
		mu.Lock()
		current = conn
		if ctx.Err() != nil {
			_ = conn.Close()
		}
		mu.Unlock()
		s.serve(conn)
	}
}

// serve drains one connection's request lines until it closes, EOFs, or a
// Quit request is processed. It runs on the accept goroutine by design: the
// next Accept only happens once this returns.
func (s *RemoteControlServer) serve(conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	s.log.Info().Str("remote", remote).Msg("remote control connected")

	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req supervisor.RemoteRequest
		if err := json.Unmarshal(line, &req); err != nil {
			resp := supervisor.ErrorResponse("Invalid request: %v", err)
			if !s.writeResponse(writer, resp) {
				return
			}
			continue
		}

		s.sup.RemoteRequests() <- req
		resp := <-s.sup.RemoteResponses()
		if !s.writeResponse(writer, resp) {
			return
		}
		if resp.Kind == supervisor.RespQuit {
			return
		}
	}
	s.log.Info().Str("remote", remote).Msg("remote control disconnected")
}

func (s *RemoteControlServer) writeResponse(w *bufio.Writer, resp supervisor.RemoteResponse) bool {
	b, err := json.Marshal(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode remote control response")
		return false
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return false
	}
	return w.Flush() == nil
}
