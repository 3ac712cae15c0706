package bus

import "time"

// Event kinds published by chatkit components. Subscribers filter by
// prefix, e.g. "message." receives every message event.
const (
	KindMessageCreated    = "message.created"
	KindMessageEdited     = "message.edited"
	KindMessageDeleted    = "message.deleted"
	KindMessageSendAck    = "message.send_ack"
	KindMessageSendFailed = "message.send_failed"

	KindConversationUpdated = "conversation.updated"
	KindConversationRemoved = "conversation.removed"

	KindSessionChanged = "session.changed"

	KindRealtimeStatus = "realtime.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Now builds an event stamped with the current time.
func Now(kind string, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
