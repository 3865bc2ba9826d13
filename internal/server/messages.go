package server

import "encoding/json"

type MessageType string

const (
	TypeHeartbeat  MessageType = "heartbeat"
	TypeIdentify   MessageType = "identify"
	TypeCreateRoom MessageType = "create_room"
	TypeJoinRoom   MessageType = "join_room"
	TypeLeaveRoom  MessageType = "leave_room"
	TypeSetReady   MessageType = "set_ready"
	TypeStart      MessageType = "start"
	TypePlay       MessageType = "play"
	TypeDraw       MessageType = "draw"
	TypePass       MessageType = "pass"
	TypePing       MessageType = "ping" // legacy keepalive
)

type clientEnvelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId"`
	Data      json.RawMessage `json:"data"`
}

// inboundMessage is the decoded form of one client envelope. Payload carries
// the typed payload for the message types that have one, so handlers never
// touch raw JSON.
type inboundMessage struct {
	Type      MessageType
	RequestID string
	Payload   any
}

// decodeInbound parses a raw frame once at the boundary. An envelope that
// fails to parse is dropped (ok=false), never surfaced as an error. Payload
// fields are decoded leniently; only play records a malformed shape, which
// the handler turns into invalid_card.
func decodeInbound(raw []byte) (inboundMessage, bool) {
	var env clientEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return inboundMessage{}, false
	}

	msg := inboundMessage{
		Type:      MessageType(env.Type),
		RequestID: env.RequestID,
	}

	switch msg.Type {
	case TypeIdentify:
		var p IdentifyPayload
		_ = json.Unmarshal(env.Data, &p)
		msg.Payload = p
	case TypeJoinRoom:
		var p JoinRoomPayload
		_ = json.Unmarshal(env.Data, &p)
		msg.Payload = p
	case TypeSetReady:
		var p SetReadyPayload
		_ = json.Unmarshal(env.Data, &p)
		msg.Payload = p
	case TypePlay:
		var p PlayPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			p.Malformed = true
		}
		msg.Payload = p
	}

	return msg, true
}

// serverEnvelope is the outbound frame: {type, data} or {type, requestId,
// data} when echoing a request's correlation token.
type serverEnvelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// errorEnvelope is the single-recipient rejection frame. Received is set only
// for unknown_type.
type errorEnvelope struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error"`
	Received  string `json:"received,omitempty"`
}
