package events

import (
	"context"
	"time"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USER_LOGIN").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Publisher delivers events to whoever is listening. Implementations must not
// block the caller on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Session lifecycle event types.
const (
	TypeChatReplied    = "CHAT_REPLIED"
	TypePDFAttached    = "PDF_ATTACHED"
	TypePDFDetached    = "PDF_DETACHED"
	TypeSessionReset   = "SESSION_RESET"
	TypeSessionEvicted = "SESSION_EVICTED"
)

// NewSessionEvent builds a BaseEvent carrying the session id in its payload.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := map[string]interface{}{"session_id": sessionID}
	for k, v := range data {
		payload[k] = v
	}
	return BaseEvent{Type: eventType, Data: payload, OccurredAt: time.Now()}
}
