// Package procadapter is the Process Adapter (spec §4.2): it launches an
// engine process and waits for its WebSocket port to start accepting
// connections, exposing connect/kill/wait to the rest of the proxy. It never
// retries; a spawn failure is fatal for the caller.
package procadapter

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os/exec"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Options are the opaque process options the spec keeps out of the core;
// here they resolve to the concrete pieces os/exec needs.
type Options struct {
	Command string
	Args    []string
	Host    string
	Port    int

	// DialTimeout bounds how long Spawn waits for the port to accept.
	DialTimeout time.Duration
	// PollInterval is how often Spawn retries the dial while waiting.
	PollInterval time.Duration
}

func (o Options) dialTimeout() time.Duration {
	if o.DialTimeout > 0 {
		return o.DialTimeout
	}
	return 30 * time.Second
}

func (o Options) pollInterval() time.Duration {
	if o.PollInterval > 0 {
		return o.PollInterval
	}
	return 100 * time.Millisecond
}

// Spawner is the contract the rest of the proxy programs against, so tests
// can substitute a fake without starting a real subprocess.
type Spawner interface {
	Spawn(ctx context.Context, opts Options) (Handle, error)
}

// Handle is a running (or exited) engine process.
type Handle interface {
	// Connect opens a WebSocket client socket to the engine.
	Connect(ctx context.Context) (*websocket.Conn, error)
	// Kill sends immediate termination.
	Kill() error
	// Wait blocks until the process exits and returns its error, if any.
	Wait() error
}

// OSSpawner spawns real subprocesses via os/exec, the one ambient concern in
// this module left on the standard library: no example repo in the corpus
// reaches for a third-party process-supervision library, so exec.Command
// plus the port-polling loop below is the idiomatic choice.
type OSSpawner struct {
	Logger zerolog.Logger
}

// Spawn launches the engine and blocks until its port accepts TCP
// connections, per spec §4.2. Failure to start or to become reachable
// within DialTimeout is fatal: the process is killed and an error returned.
func (s OSSpawner) Spawn(ctx context.Context, opts Options) (Handle, error) {
	cmd := exec.CommandContext(ctx, opts.Command, opts.Args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("procadapter: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("procadapter: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("procadapter: spawn failed: %w", err)
	}

	h := &osHandle{cmd: cmd, opts: opts, logger: s.Logger, exited: make(chan struct{})}
	go h.tailPipe(stdout)
	go h.tailPipe(stderr)
	go h.wait()

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	if err := waitForAccept(ctx, addr, opts.dialTimeout(), opts.pollInterval()); err != nil {
		_ = h.Kill()
		return nil, fmt.Errorf("procadapter: engine never accepted connections at %s: %w", addr, err)
	}
	return h, nil
}

func waitForAccept(ctx context.Context, addr string, timeout, interval time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, interval)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		if time.Now().After(deadline) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

type osHandle struct {
	cmd    *exec.Cmd
	opts   Options
	logger zerolog.Logger
	exited chan struct{}
	waitErr error
}

func (h *osHandle) tailPipe(pipe io.ReadCloser) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		h.logger.Debug().Str("engine", h.opts.Command).Msg(scanner.Text())
	}
}

func (h *osHandle) wait() {
	h.waitErr = h.cmd.Wait()
	close(h.exited)
}

func (h *osHandle) Connect(ctx context.Context) (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: fmt.Sprintf("%s:%d", h.opts.Host, h.opts.Port), Path: "/sc2api"}
	dialer := websocket.Dialer{HandshakeTimeout: h.opts.dialTimeout()}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("procadapter: connect failed: %w", err)
	}
	return conn, nil
}

func (h *osHandle) Kill() error {
	if h.cmd.Process == nil {
		return nil
	}
	return h.cmd.Process.Kill()
}

func (h *osHandle) Wait() error {
	<-h.exited
	return h.waitErr
}
