package realtime

import (
	"testing"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
)

func TestDecodeMessageCreated(t *testing.T) {
	data := []byte(`{"type":"message.created","payload":{"id":"m1","clientId":"cid-1","conversationId":"c1","senderId":"u2","content":"hi","timestamp":"2026-03-10T12:00:00Z"}}`)

	evt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if evt.Kind != bus.KindMessageCreated {
		t.Errorf("kind = %q, want %s", evt.Kind, bus.KindMessageCreated)
	}
	msg, ok := evt.Payload.(api.Message)
	if !ok {
		t.Fatalf("payload type = %T, want api.Message", evt.Payload)
	}
	if msg.ID != "m1" || msg.ClientID != "cid-1" || msg.ConversationID != "c1" {
		t.Errorf("message = %+v, want m1/cid-1/c1", msg)
	}
}

func TestDecodeMessageEdited(t *testing.T) {
	data := []byte(`{"type":"message.edited","payload":{"id":"m1","conversationId":"c1","content":"new","edited":true}}`)

	evt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if evt.Kind != bus.KindMessageEdited {
		t.Errorf("kind = %q, want %s", evt.Kind, bus.KindMessageEdited)
	}
	msg := evt.Payload.(api.Message)
	if msg.Content != "new" || !msg.Edited {
		t.Errorf("message = %+v, want edited content", msg)
	}
}

func TestDecodeMessageDeleted(t *testing.T) {
	data := []byte(`{"type":"message.deleted","payload":{"messageId":"m1","conversationId":"c1"}}`)

	evt, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if evt.Kind != bus.KindMessageDeleted {
		t.Errorf("kind = %q, want %s", evt.Kind, bus.KindMessageDeleted)
	}
	p, ok := evt.Payload.(DeletedPayload)
	if !ok {
		t.Fatalf("payload type = %T, want DeletedPayload", evt.Payload)
	}
	if p.MessageID != "m1" || p.ConversationID != "c1" {
		t.Errorf("payload = %+v, want m1/c1", p)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"presence.changed","payload":{}}`)); err == nil {
		t.Error("Decode() = nil error for unknown type, want error")
	}
}

func TestDecodeMalformed(t *testing.T) {
	if _, err := Decode([]byte(`{not json`)); err == nil {
		t.Error("Decode() = nil error for malformed input, want error")
	}
	if _, err := Decode([]byte(`{"type":"message.created","payload":"not-an-object"}`)); err == nil {
		t.Error("Decode() = nil error for malformed payload, want error")
	}
}
