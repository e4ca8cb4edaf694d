// Package wire is the Wire Codec (spec §4.1): it frames the game's
// otherwise-opaque request/response protocol as WebSocket binary messages
// and exposes the small predicate set the rest of the proxy reasons about,
// without ever interpreting the payload beyond that.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/lguibr/sc2-proxy/sc2types"
)

// Kind tags what a Request or Response carries, standing in for the real
// game protocol's oneof/tagged-union message body.
type Kind string

const (
	KindPing        Kind = "ping"
	KindQuit        Kind = "quit"
	KindCreateGame  Kind = "create_game"
	KindJoinGame    Kind = "join_game"
	KindLeaveGame   Kind = "leave_game"
	KindObservation Kind = "observation"
	KindDebug       Kind = "debug"
	KindError       Kind = "error"
	KindStatus      Kind = "status"
)

// DebugCommand is one command inside a Debug request. IsDraw distinguishes
// pure drawing overlays (always allowed) from everything else (subject to
// the cheat filter, see the policy package).
type DebugCommand struct {
	IsDraw bool   `json:"is_draw"`
	Name   string `json:"name,omitempty"`
}

// Request travels client -> proxy -> engine.
type Request struct {
	Kind Kind `json:"kind"`

	// JoinGame fields.
	Race            sc2types.Race     `json:"race,omitempty"`
	PlayerName      string            `json:"player_name,omitempty"`
	InterfaceOptions map[string]bool  `json:"interface_options,omitempty"`
	PortConfig      *PortConfig       `json:"port_config,omitempty"`
	SharedPortHost  bool              `json:"shared_port_host,omitempty"`

	// CreateGame fields.
	MapPath      string              `json:"map_path,omitempty"`
	Realtime     bool                `json:"realtime,omitempty"`
	DisableFog   bool                `json:"disable_fog,omitempty"`
	RandomSeed   *uint32             `json:"random_seed,omitempty"`
	PlayerSetups []CreateGamePlayer  `json:"player_setups,omitempty"`

	// Debug fields.
	DebugCommands []DebugCommand `json:"debug_commands,omitempty"`
}

// CreateGamePlayer is one slot in a CreateGame request's player setup list:
// either a human/bot Participant or an engine-builtin Computer.
type CreateGamePlayer struct {
	IsComputer bool               `json:"is_computer"`
	Race       sc2types.Race      `json:"race,omitempty"`
	Difficulty sc2types.Difficulty `json:"difficulty,omitempty"`
}

// PortConfig describes the shared-port handshake ports (see the ports
// package); it rides inside a JoinGame request.
type PortConfig struct {
	SharedPort  int   `json:"shared_port"`
	ServerPorts [2]int `json:"server_ports"`
	ClientPorts [][2]int `json:"client_ports"`
}

// Observation carries the subset of an observation frame the proxy reads.
type Observation struct {
	GameLoop      uint64                      `json:"game_loop,omitempty"`
	PlayerResults []sc2types.PlayerOutcome    `json:"player_results,omitempty"`
}

// Response travels engine -> proxy -> client.
type Response struct {
	Kind   Kind            `json:"kind"`
	Status sc2types.Status `json:"status,omitempty"`

	Error []string `json:"error,omitempty"`

	CreateGameError string `json:"create_game_error,omitempty"`
	JoinGameError   string `json:"join_game_error,omitempty"`

	Observation *Observation `json:"observation,omitempty"`
}

// Encode marshals r as the raw bytes of a WebSocket binary message.
func Encode(r Response) ([]byte, error) {
	return json.Marshal(r)
}

// EncodeRequest marshals a Request the same way, used proxy -> engine.
func EncodeRequest(r Request) ([]byte, error) {
	return json.Marshal(r)
}

// CodecError wraps a decode failure with the offending bytes' length, never
// the payload itself (it may be arbitrarily large or binary garbage).
type CodecError struct {
	Len int
	Err error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("wire: decode failed for %d-byte frame: %v", e.Len, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// DecodeRequest parses bytes received from a client into a Request.
func DecodeRequest(b []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(b, &req); err != nil {
		return Request{}, &CodecError{Len: len(b), Err: err}
	}
	return req, nil
}

// DecodeResponse parses bytes received from an engine into a Response.
func DecodeResponse(b []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(b, &resp); err != nil {
		return Response{}, &CodecError{Len: len(b), Err: err}
	}
	return resp, nil
}

// --- Predicate accessors (spec §4.1) ---

func (r Request) IsQuit() bool      { return r.Kind == KindQuit }
func (r Request) IsPing() bool      { return r.Kind == KindPing }
func (r Request) IsJoinGame() bool  { return r.Kind == KindJoinGame }
func (r Request) IsLeaveGame() bool { return r.Kind == KindLeaveGame }
func (r Request) IsCreateGame() bool { return r.Kind == KindCreateGame }
func (r Request) IsDebug() bool     { return r.Kind == KindDebug }

// HasNonDrawDebugCommand reports whether any debug command in the request
// is something other than a pure drawing overlay.
func (r Request) HasNonDrawDebugCommand() bool {
	for _, cmd := range r.DebugCommands {
		if !cmd.IsDraw {
			return true
		}
	}
	return false
}

func (r Response) IsCreateGameOK() bool { return r.Kind == KindCreateGame && r.CreateGameError == "" }
func (r Response) IsJoinGameOK() bool   { return r.Kind == KindJoinGame && r.JoinGameError == "" }
func (r Response) IsQuit() bool         { return r.Kind == KindQuit }
func (r Response) IsLeaveGame() bool    { return r.Kind == KindLeaveGame }

// HasObservationResults reports whether the response carries a non-empty
// player_results list, i.e. the match is over.
func (r Response) HasObservationResults() bool {
	return r.Observation != nil && len(r.Observation.PlayerResults) > 0
}

// ErrorFrame builds the proxy's own "Proxy: Request denied" response, part
// of the small vocabulary the proxy adds on top of the game protocol.
func ErrorFrame(message string) Response {
	return Response{Kind: KindError, Error: []string{message}}
}

// PongFrame and QuitAckFrame are likewise proxy-owned vocabulary, only ever
// sent while a client sits in the playlist (spec §6).
func PongFrame() Response    { return Response{Kind: KindPing} }
func QuitAckFrame() Response { return Response{Kind: KindQuit} }

// FrameKind classifies a raw WebSocket frame the way the codec must before
// any game-protocol decoding happens: only binary frames carry game
// traffic, a close frame ends the Player, anything else is a protocol
// violation (spec §4.1).
type FrameKind int

const (
	FrameBinary FrameKind = iota
	FrameClose
	FrameOther
)

// ClassifyFrame maps a gorilla/websocket message type to a FrameKind.
func ClassifyFrame(messageType int) FrameKind {
	switch messageType {
	case websocket.BinaryMessage:
		return FrameBinary
	case websocket.CloseMessage:
		return FrameClose
	default:
		return FrameOther
	}
}
