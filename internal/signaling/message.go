package signaling

import (
	"encoding/json"
	"strings"
)

// Event names shared with the browser client. The payload field names in the
// envelope below are part of the same compatibility contract.
const (
	EventJoinRoom  = "join-room"
	EventJoined    = "joined"
	EventRoomFull  = "room-full"
	EventErr       = "err"
	EventSystem    = "system"
	EventNeedOffer = "need-offer"
	EventOffer     = "webrtc-offer"
	EventAnswer    = "webrtc-answer"
	EventICE       = "webrtc-ice"
	EventChat      = "chat"
)

// Server-side limits, enforced regardless of client input.
const (
	MaxNameLen = 30
	MaxTextLen = 500
)

// DefaultName is used when a client supplies no usable display name.
const DefaultName = "Anon"

// Message defines the structure for all C2S (Client to Server)
// and S2C (Server to Client) websocket messages. Only the fields relevant
// to a given Type are populated; the rest are omitted from the wire form.
type Message struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role,omitempty"`

	// Text carries system notices and chat bodies; ErrText carries the
	// human-readable error for EventErr.
	Text    string `json:"text,omitempty"`
	ErrText string `json:"message,omitempty"`

	// WebRTC setup payloads. Opaque to the relay: they are routed by the
	// envelope alone and never parsed here.
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`

	// Timestamp is server-assigned (Unix milliseconds) on chat broadcasts.
	Timestamp int64 `json:"timestamp,omitempty"`

	// client is the client that sent the message.
	// It's used internally by the Hub and not sent over JSON.
	client *Client `json:"-"`
}

// truncateRunes caps s at n runes. Byte slicing could split a multi-byte
// character, so count runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// normalizeName trims a client-supplied display name, substitutes
// DefaultName when nothing is left, and caps the length.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}
	return truncateRunes(name, MaxNameLen)
}

// normalizeRoomID trims the room identifier. Room ids are otherwise opaque:
// case-sensitive, no charset or length restriction.
func normalizeRoomID(roomID string) string {
	return strings.TrimSpace(roomID)
}

// normalizeChatText trims and caps a chat body. An empty result means the
// message is dropped.
func normalizeChatText(text string) string {
	return truncateRunes(strings.TrimSpace(text), MaxTextLen)
}
