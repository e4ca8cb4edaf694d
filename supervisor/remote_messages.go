package supervisor

import (
	"encoding/json"
	"fmt"

	"github.com/lguibr/sc2-proxy/config"
)

// RemoteRequest is the Remote Control Server's tagged-union request (spec
// §4.9). Exactly one payload field is meaningful per Kind; the rest are
// zero. JSON framing matches the externally-tagged shape shown in spec §6's
// example exchanges (`{"Ping": 1234}`, the bare string `"Quit"`), so decoded
// wire bytes round-trip through Go's tagged-switch idiom instead of an
// interface{}-typed payload.
type RemoteRequest struct {
	Kind RemoteRequestKind

	PingSeq  uint32
	Config   *config.Config
	ClientID ClientID
	GameID   uint64
}

// RemoteRequestKind enumerates the request variants named in spec §4.9.
type RemoteRequestKind string

const (
	ReqQuit             RemoteRequestKind = "Quit"
	ReqPing             RemoteRequestKind = "Ping"
	ReqGetConfig        RemoteRequestKind = "GetConfig"
	ReqSetConfig        RemoteRequestKind = "SetConfig"
	ReqGetPlaylist      RemoteRequestKind = "GetPlaylist"
	ReqDropPlaylistItem RemoteRequestKind = "DropPlaylistItem"
	ReqClearPlaylist    RemoteRequestKind = "ClearPlaylist"
	ReqCreateLobby      RemoteRequestKind = "CreateLobby"
	ReqAddToLobby       RemoteRequestKind = "AddToLobby"
	ReqStartGame        RemoteRequestKind = "StartGame"
)

// unitRequests have no payload and are serialized as the bare tag string,
// e.g. "Quit", matching the original protocol's unit-variant encoding.
var unitRequests = map[RemoteRequestKind]bool{
	ReqQuit:          true,
	ReqGetConfig:     true,
	ReqGetPlaylist:   true,
	ReqClearPlaylist: true,
}

// addToLobbyWire is the two-field payload shape for AddToLobby(game_id,
// client_id).
type addToLobbyWire struct {
	GameID   uint64 `json:"game_id"`
	ClientID string `json:"client_id"`
}

// UnmarshalJSON decodes one Remote Control request line.
func (r *RemoteRequest) UnmarshalJSON(b []byte) error {
	var bare string
	if err := json.Unmarshal(b, &bare); err == nil {
		kind := RemoteRequestKind(bare)
		if !unitRequests[kind] {
			return fmt.Errorf("supervisor: unknown bare request %q", bare)
		}
		*r = RemoteRequest{Kind: kind}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("supervisor: invalid request: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("supervisor: request object must carry exactly one tag, got %d", len(obj))
	}
	for tag, payload := range obj {
		kind := RemoteRequestKind(tag)
		switch kind {
		case ReqPing:
			var seq uint32
			if err := json.Unmarshal(payload, &seq); err != nil {
				return fmt.Errorf("supervisor: invalid Ping payload: %w", err)
			}
			*r = RemoteRequest{Kind: ReqPing, PingSeq: seq}
		case ReqSetConfig:
			var cfg config.Config
			if err := json.Unmarshal(payload, &cfg); err != nil {
				return fmt.Errorf("supervisor: invalid SetConfig payload: %w", err)
			}
			*r = RemoteRequest{Kind: ReqSetConfig, Config: &cfg}
		case ReqDropPlaylistItem:
			var id string
			if err := json.Unmarshal(payload, &id); err != nil {
				return fmt.Errorf("supervisor: invalid DropPlaylistItem payload: %w", err)
			}
			*r = RemoteRequest{Kind: ReqDropPlaylistItem, ClientID: ClientID(id)}
		case ReqCreateLobby:
			*r = RemoteRequest{Kind: ReqCreateLobby}
		case ReqAddToLobby:
			var w addToLobbyWire
			if err := json.Unmarshal(payload, &w); err != nil {
				return fmt.Errorf("supervisor: invalid AddToLobby payload: %w", err)
			}
			*r = RemoteRequest{Kind: ReqAddToLobby, GameID: w.GameID, ClientID: ClientID(w.ClientID)}
		case ReqStartGame:
			var id uint64
			if err := json.Unmarshal(payload, &id); err != nil {
				return fmt.Errorf("supervisor: invalid StartGame payload: %w", err)
			}
			*r = RemoteRequest{Kind: ReqStartGame, GameID: id}
		default:
			return fmt.Errorf("supervisor: unknown request tag %q", tag)
		}
	}
	return nil
}

// MarshalJSON encodes a RemoteRequest back to wire form; mainly exercised by
// the JSON round-trip property test (spec §8 property 7).
func (r RemoteRequest) MarshalJSON() ([]byte, error) {
	if unitRequests[r.Kind] {
		return json.Marshal(string(r.Kind))
	}
	switch r.Kind {
	case ReqPing:
		return json.Marshal(map[string]uint32{string(ReqPing): r.PingSeq})
	case ReqSetConfig:
		return json.Marshal(map[string]*config.Config{string(ReqSetConfig): r.Config})
	case ReqDropPlaylistItem:
		return json.Marshal(map[string]string{string(ReqDropPlaylistItem): string(r.ClientID)})
	case ReqAddToLobby:
		return json.Marshal(map[string]addToLobbyWire{
			string(ReqAddToLobby): {GameID: r.GameID, ClientID: string(r.ClientID)},
		})
	case ReqStartGame:
		return json.Marshal(map[string]uint64{string(ReqStartGame): r.GameID})
	default:
		return nil, fmt.Errorf("supervisor: cannot encode request kind %q", r.Kind)
	}
}

// RemoteResponseKind enumerates the response variants the Supervisor can
// produce (spec §4.9, §6).
type RemoteResponseKind string

const (
	RespQuit          RemoteResponseKind = "Quit"
	RespPing          RemoteResponseKind = "Ping"
	RespGetConfig     RemoteResponseKind = "GetConfig"
	RespSetConfig     RemoteResponseKind = "SetConfig"
	RespPlaylist      RemoteResponseKind = "GetPlaylist"
	RespDropPlaylist  RemoteResponseKind = "DropPlaylist"
	RespClearPlaylist RemoteResponseKind = "ClearPlaylist"
	RespGameID        RemoteResponseKind = "CreateLobby"
	RespAddToLobby    RemoteResponseKind = "AddToLobby"
	RespStartGame     RemoteResponseKind = "StartGame"
	RespError         RemoteResponseKind = "Error"
)

// unitResponses have no payload and round-trip as the bare tag string,
// mirroring the original remote_control::message::Response enum's unit
// variants (message.rs:37-50): DropPlaylist, ClearPlaylist, AddToLobby and
// StartGame carry no data beyond confirming the operation happened.
var unitResponses = map[RemoteResponseKind]bool{
	RespQuit:          true,
	RespDropPlaylist:  true,
	RespClearPlaylist: true,
	RespAddToLobby:    true,
	RespStartGame:     true,
}

// PlaylistItem is one row of a GetPlaylist response.
type PlaylistItem struct {
	ClientID string `json:"client_id"`
	IsReady  bool   `json:"is_ready"`
}

// RemoteResponse is the Supervisor's reply, mirroring RemoteRequest's
// external-tagging shape.
type RemoteResponse struct {
	Kind     RemoteResponseKind
	PingSeq  uint32
	Config   *config.Config
	Playlist []PlaylistItem
	GameID   uint64
	Error    string
}

// MarshalJSON encodes one Remote Control response line.
func (r RemoteResponse) MarshalJSON() ([]byte, error) {
	if unitResponses[r.Kind] {
		return json.Marshal(string(r.Kind))
	}
	switch r.Kind {
	case RespPing:
		return json.Marshal(map[string]uint32{string(RespPing): r.PingSeq})
	case RespGetConfig:
		return json.Marshal(map[string]*config.Config{string(RespGetConfig): r.Config})
	case RespSetConfig:
		return json.Marshal(map[string]*config.Config{string(RespSetConfig): r.Config})
	case RespPlaylist:
		items := r.Playlist
		if items == nil {
			items = []PlaylistItem{}
		}
		return json.Marshal(map[string][]PlaylistItem{string(RespPlaylist): items})
	case RespGameID:
		return json.Marshal(map[string]uint64{string(RespGameID): r.GameID})
	case RespError:
		return json.Marshal(map[string]string{string(RespError): r.Error})
	default:
		return nil, fmt.Errorf("supervisor: cannot encode response kind %q", r.Kind)
	}
}

// UnmarshalJSON decodes one Remote Control response line; primarily used by
// the round-trip property test and by any RPC client written against this
// package.
func (r *RemoteResponse) UnmarshalJSON(b []byte) error {
	var bare string
	if err := json.Unmarshal(b, &bare); err == nil {
		kind := RemoteResponseKind(bare)
		if !unitResponses[kind] {
			return fmt.Errorf("supervisor: unknown bare response %q", bare)
		}
		*r = RemoteResponse{Kind: kind}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("supervisor: invalid response: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("supervisor: response object must carry exactly one tag, got %d", len(obj))
	}
	for tag, payload := range obj {
		kind := RemoteResponseKind(tag)
		switch kind {
		case RespPing:
			var seq uint32
			if err := json.Unmarshal(payload, &seq); err != nil {
				return err
			}
			*r = RemoteResponse{Kind: RespPing, PingSeq: seq}
		case RespGetConfig:
			var cfg config.Config
			if err := json.Unmarshal(payload, &cfg); err != nil {
				return err
			}
			*r = RemoteResponse{Kind: RespGetConfig, Config: &cfg}
		case RespSetConfig:
			var cfg config.Config
			if err := json.Unmarshal(payload, &cfg); err != nil {
				return err
			}
			*r = RemoteResponse{Kind: RespSetConfig, Config: &cfg}
		case RespPlaylist:
			var items []PlaylistItem
			if err := json.Unmarshal(payload, &items); err != nil {
				return err
			}
			*r = RemoteResponse{Kind: RespPlaylist, Playlist: items}
		case RespGameID:
			var id uint64
			if err := json.Unmarshal(payload, &id); err != nil {
				return err
			}
			*r = RemoteResponse{Kind: RespGameID, GameID: id}
		case RespError:
			var msg string
			if err := json.Unmarshal(payload, &msg); err != nil {
				return err
			}
			*r = RemoteResponse{Kind: RespError, Error: msg}
		default:
			return fmt.Errorf("supervisor: unknown response tag %q", tag)
		}
	}
	return nil
}

// ErrorResponse builds the `{"Error": "..."}` shape returned on any
// malformed request (spec §6's "Invalid JSON" example).
func ErrorResponse(format string, args ...interface{}) RemoteResponse {
	return RemoteResponse{Kind: RespError, Error: fmt.Sprintf(format, args...)}
}
