package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Now(KindMessageCreated, "test"))

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageCreated {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessageCreated)
		}
		if evt.Timestamp.IsZero() {
			t.Error("event timestamp not set")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestPrefixFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Now(KindSessionChanged, nil))
	b.Publish(Now(KindMessageDeleted, nil))

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageDeleted {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessageDeleted)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	// Ensure the session event was not delivered.
	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected: no more events.
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	unsub()

	b.Publish(Now(KindMessageCreated, nil))

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// Expected.
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 1)
	defer unsub()

	// Fill buffer.
	b.Publish(Now(KindMessageCreated, "one"))
	// This should be dropped (non-blocking).
	b.Publish(Now(KindMessageCreated, "two"))

	evt := <-ch
	if evt.Payload != "one" {
		t.Errorf("got %v, want one", evt.Payload)
	}
}

func TestMultipleSubscribers(t *testing.T) {
	b := New()
	ch1, unsub1 := b.Subscribe("message.", 10)
	defer unsub1()
	ch2, unsub2 := b.Subscribe("", 10)
	defer unsub2()

	b.Publish(Now(KindMessageEdited, nil))

	for i, ch := range []<-chan Event{ch1, ch2} {
		select {
		case evt := <-ch:
			if evt.Kind != KindMessageEdited {
				t.Errorf("subscriber %d got kind %q", i, evt.Kind)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d never received the event", i)
		}
	}
}
