package server_test

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/lguibr/sc2-proxy/server"
	"github.com/lguibr/sc2-proxy/supervisor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDispatcher answers requests with canned responses queued one at a
// time through serveOne; it does not record the requests it receives.
type fakeDispatcher struct {
	req  chan supervisor.RemoteRequest
	resp chan supervisor.RemoteResponse
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		req:  make(chan supervisor.RemoteRequest, 1),
		resp: make(chan supervisor.RemoteResponse, 1),
	}
}

func (f *fakeDispatcher) RemoteRequests() chan<- supervisor.RemoteRequest  { return f.req }
func (f *fakeDispatcher) RemoteResponses() <-chan supervisor.RemoteResponse { return f.resp }

// serveOne answers exactly one request with resp, run in the background by
// each test that needs it.
func (f *fakeDispatcher) serveOne(resp supervisor.RemoteResponse) {
	go func() {
		<-f.req
		f.resp <- resp
	}()
}

func TestRemoteControlPingRoundTrip(t *testing.T) {
	addr := freeAddr(t)
	disp := newFakeDispatcher()
	rc := server.NewRemoteControlServer(addr, disp, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- rc.ListenAndServe(ctx) }()
	waitForListen(t, addr)

	disp.serveOne(supervisor.RemoteResponse{Kind: supervisor.RespPing, PingSeq: 1234})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Write([]byte(`{"Ping":1234}` + "\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.JSONEq(t, `{"Ping":1234}`, line)

	cancel()
	require.NoError(t, <-done)
}

func TestRemoteControlInvalidJSONRespondsErrorAndStaysOpen(t *testing.T) {
	addr := freeAddr(t)
	disp := newFakeDispatcher()
	rc := server.NewRemoteControlServer(addr, disp, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- rc.ListenAndServe(ctx) }()
	waitForListen(t, addr)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Write([]byte(`not json` + "\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "Invalid request")

	// The connection should still accept another line afterwards.
	_, err = conn.Write([]byte(`still not json` + "\n"))
	require.NoError(t, err)
	line2, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line2, "Invalid request")

	cancel()
	_ = conn.SetDeadline(time.Now().Add(time.Second))
	require.NoError(t, <-done)
}

func TestRemoteControlQuitClosesConnection(t *testing.T) {
	addr := freeAddr(t)
	disp := newFakeDispatcher()
	rc := server.NewRemoteControlServer(addr, disp, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- rc.ListenAndServe(ctx) }()
	waitForListen(t, addr)

	disp.serveOne(supervisor.RemoteResponse{Kind: supervisor.RespQuit})

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Write([]byte(`"Quit"` + "\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.JSONEq(t, `"Quit"`, line)

	// Server closes its side after a Quit response; the next read hits EOF.
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = reader.ReadString('\n')
	assert.Error(t, err)

	cancel()
	require.NoError(t, <-done)
}
