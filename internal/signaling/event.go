package signaling

import "encoding/json"

// EventType identifies a signaling event. The relay dispatches on the type
// only; Offer/Answer/Candidate payloads are relayed verbatim and never
// inspected.
type EventType string

// Inbound event types (client to server).
const (
	EventJoin      EventType = "join"
	EventLeave     EventType = "leave"
	EventOffer     EventType = "offer"
	EventAnswer    EventType = "answer"
	EventCandidate EventType = "ice-candidate"
)

// Outbound event types (server to client).
const (
	EventUserJoined  EventType = "user-joined"
	EventUserLeft    EventType = "user-left"
	EventForceLogout EventType = "force-logout"
	EventBroadcast   EventType = "broadcast"
)

// Event is the wire format for all signaling messages in both directions.
type Event struct {
	Type    EventType       `json:"type"`
	Room    string          `json:"room,omitempty"`
	Name    string          `json:"name,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the connection that sent the event. It's used internally
	// by the Hub and not sent over JSON.
	client *Client
}
