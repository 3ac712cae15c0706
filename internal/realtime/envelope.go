package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
)

// Wire event types delivered by the gateway's push channel.
const (
	TypeMessageCreated = "message.created"
	TypeMessageEdited  = "message.edited"
	TypeMessageDeleted = "message.deleted"
)

// Envelope is the wire format for all push events.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DeletedPayload is the payload of a message.deleted event.
type DeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// Decode maps a wire envelope onto a bus event. Unknown envelope types
// return an error and are skipped by the read loop.
func Decode(data []byte) (bus.Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return bus.Event{}, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Type {
	case TypeMessageCreated, TypeMessageEdited:
		var msg api.Message
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return bus.Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		kind := bus.KindMessageCreated
		if env.Type == TypeMessageEdited {
			kind = bus.KindMessageEdited
		}
		return bus.Now(kind, msg), nil
	case TypeMessageDeleted:
		var p DeletedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return bus.Event{}, fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
		return bus.Now(bus.KindMessageDeleted, p), nil
	default:
		return bus.Event{}, fmt.Errorf("unknown envelope type %q", env.Type)
	}
}
