package supervisor

import (
	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/game"
	"github.com/lguibr/sc2-proxy/wire"
)

// ClientID identifies a playlist entry by its peer address, rendered
// "host:port" (spec §4.9's "client identifier").
type ClientID string

// readOutcome is one frame (or transport error) read off a playlist socket.
type readOutcome struct {
	req wire.Request
	err error
}

// playlistEntry is a PlaylistEntry (spec §3): a parked client socket plus
// whatever of its join request has already arrived. Rather than flipping
// the gorilla/websocket connection itself into non-blocking mode (gorilla
// exposes no such knob), a one-shot reader goroutine bridges each blocking
// ReadMessage into a buffered channel the control loop polls without ever
// blocking on it — the event-loop adaptation spec §9 explicitly allows.
type playlistEntry struct {
	id          ClientID
	conn        *websocket.Conn
	data        game.PlayerData
	pendingJoin *wire.Request
	results     chan readOutcome
}

func newPlaylistEntry(conn *websocket.Conn) *playlistEntry {
	e := &playlistEntry{
		id:      ClientID(conn.RemoteAddr().String()),
		conn:    conn,
		results: make(chan readOutcome, 1),
	}
	e.startRead()
	return e
}

// startRead launches the next one-shot blocking read. Must only be called
// when no read is currently in flight for this entry (i.e. right after
// construction, or right after the previous read's result was consumed and
// the entry is staying in the playlist).
func (e *playlistEntry) startRead() {
	go func() {
		_, raw, err := e.conn.ReadMessage()
		if err != nil {
			e.results <- readOutcome{err: err}
			return
		}
		req, err := wire.DecodeRequest(raw)
		e.results <- readOutcome{req: req, err: err}
	}()
}

func (e *playlistEntry) respond(resp wire.Response) error {
	raw, err := wire.Encode(resp)
	if err != nil {
		return err
	}
	return e.conn.WriteMessage(websocket.BinaryMessage, raw)
}

func (e *playlistEntry) isReady() bool { return e.pendingJoin != nil }
