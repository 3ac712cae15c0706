package sync

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/realtime"
	"go.uber.org/zap"
)

// Messages returns a snapshot of the open conversation's message list.
// Entries with a pending delete are hidden.
func (e *Engine) Messages() []Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Message, 0, len(e.msgs))
	for _, m := range e.msgs {
		if m.Status != StatusDeletePending {
			out = append(out, m)
		}
	}
	return out
}

// Send optimistically inserts the message with a fresh client id and
// status "sending" before the network call, then reconciles: the entry
// transitions to "sent" (with the server id) on success or "failed" on
// any error. Failed entries stay visible for retry; the list never
// gains a second entry for one send.
func (e *Engine) Send(ctx context.Context, content string) error {
	self, err := e.self()
	if err != nil {
		return err
	}

	e.mu.Lock()
	conversationID := e.selected
	e.mu.Unlock()
	if conversationID == "" {
		return api.Errf(api.KindValidation, "no open conversation")
	}

	msg := Message{
		ClientID:       uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       self.ID,
		SenderName:     self.Username,
		Content:        content,
		Timestamp:      time.Now(),
		Status:         StatusSending,
	}

	// The optimistic insert happens synchronously, so two rapid sends
	// keep submission order regardless of response order.
	e.mu.Lock()
	e.msgs = append(e.msgs, msg)
	e.mu.Unlock()

	return e.deliver(ctx, msg)
}

// Retry resends a failed message in place: failed -> retrying -> sent
// or failed again. It is user-triggered only and never duplicates the
// entry.
func (e *Engine) Retry(ctx context.Context, clientID string) error {
	e.mu.Lock()
	var msg Message
	found := false
	for i := range e.msgs {
		if e.msgs[i].ClientID == clientID {
			if e.msgs[i].Status != StatusFailed {
				e.mu.Unlock()
				return api.Errf(api.KindValidation, "message %s is not in a failed state", clientID)
			}
			e.msgs[i].Status = StatusRetrying
			msg = e.msgs[i]
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return api.Errf(api.KindNotFound, "no local message %s", clientID)
	}

	return e.deliver(ctx, msg)
}

// deliver performs the send request for an already-inserted optimistic
// entry and settles its status.
func (e *Engine) deliver(ctx context.Context, msg Message) error {
	res, err := e.gw.SendMessage(ctx, &api.SendMessageRequest{
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		ClientID:       msg.ClientID,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.msgs {
		if e.msgs[i].ClientID != msg.ClientID {
			continue
		}
		if err != nil {
			e.msgs[i].Status = StatusFailed
		} else {
			e.msgs[i].Status = StatusSent
			if res != nil && res.ID != "" {
				e.msgs[i].ID = res.ID
			}
		}
		break
	}
	if err != nil {
		e.logger.Warn("send failed", zap.String("client_id", msg.ClientID), zap.Error(err))
		if e.bus != nil {
			e.bus.Publish(bus.Now(bus.KindMessageSendFailed, msg.ClientID))
		}
		return err
	}
	if e.bus != nil {
		e.bus.Publish(bus.Now(bus.KindMessageSendAck, msg.ClientID))
	}
	return nil
}

// Edit optimistically overwrites the message content, then reconciles:
// on failure the previous content is restored and the typed error is
// returned. Only sent messages are editable.
func (e *Engine) Edit(ctx context.Context, messageID, newContent string) error {
	self, err := e.self()
	if err != nil {
		return err
	}

	e.mu.Lock()
	var prev string
	found := false
	for i := range e.msgs {
		if e.msgs[i].ID == messageID {
			if e.msgs[i].Status != StatusSent {
				e.mu.Unlock()
				return api.Errf(api.KindValidation, "only sent messages can be edited")
			}
			prev = e.msgs[i].Content
			e.msgs[i].Content = newContent
			e.msgs[i].Editing = true
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return api.Errf(api.KindNotFound, "no local message %s", messageID)
	}

	_, reqErr := e.gw.EditMessage(ctx, messageID, self.ID, newContent)

	e.mu.Lock()
	for i := range e.msgs {
		if e.msgs[i].ID == messageID {
			e.msgs[i].Editing = false
			if reqErr != nil {
				e.msgs[i].Content = prev
			} else {
				e.msgs[i].Edited = true
			}
			break
		}
	}
	e.mu.Unlock()
	return reqErr
}

// Delete optimistically hides the message, then reconciles: a confirmed
// delete drops the entry for good, a NotFound drops the stale local
// reference too, and any other failure restores the entry at its
// time-sorted position.
func (e *Engine) Delete(ctx context.Context, messageID string) error {
	self, err := e.self()
	if err != nil {
		return err
	}

	e.mu.Lock()
	found := false
	for i := range e.msgs {
		if e.msgs[i].ID == messageID {
			e.msgs[i].Status = StatusDeletePending
			found = true
			break
		}
	}
	e.mu.Unlock()
	if !found {
		return api.Errf(api.KindNotFound, "no local message %s", messageID)
	}

	reqErr := e.gw.DeleteMessage(ctx, messageID, self.ID)

	e.mu.Lock()
	defer e.mu.Unlock()
	if reqErr == nil || api.IsKind(reqErr, api.KindNotFound) {
		kept := e.msgs[:0]
		for _, m := range e.msgs {
			if m.ID != messageID {
				kept = append(kept, m)
			}
		}
		e.msgs = kept
		if api.IsKind(reqErr, api.KindNotFound) {
			// Already gone on the server; dropping locally is the
			// reconciliation, not an error worth surfacing twice.
			e.logger.Info("deleted message was already gone", zap.String("message_id", messageID))
		}
		return reqErr
	}

	// Restore in place and re-sort so the entry reappears at its
	// original chronological position.
	for i := range e.msgs {
		if e.msgs[i].ID == messageID {
			e.msgs[i].Status = StatusSent
			break
		}
	}
	sortByTimestamp(e.msgs)
	return reqErr
}

// Reload replaces the open conversation's message list from the server,
// the manual fallback while the push channel is degraded.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	conversationID := e.selected
	e.mu.Unlock()
	if conversationID == "" {
		return api.Errf(api.KindValidation, "no open conversation")
	}
	return e.Open(ctx, conversationID)
}

// handlePush merges an inbound push event into local state. Events for
// the open conversation mutate the message list; events for other
// conversations only touch that conversation's summary. Events for
// conversations not in the local list are ignored; the conversation
// appears on the next full load instead of as a partial entry.
func (e *Engine) handlePush(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageCreated:
		msg, ok := evt.Payload.(api.Message)
		if !ok {
			return
		}
		e.mergeCreated(fromAPIMessage(msg))
	case bus.KindMessageEdited:
		msg, ok := evt.Payload.(api.Message)
		if !ok {
			return
		}
		e.mergeEdited(fromAPIMessage(msg))
	case bus.KindMessageDeleted:
		p, ok := evt.Payload.(realtime.DeletedPayload)
		if !ok {
			return
		}
		e.mergeDeleted(p)
	}
}

func (e *Engine) mergeCreated(msg Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.ConversationID == e.selected && e.selected != "" {
		// Correlate with a local optimistic entry first: the push for
		// our own send reconciles the entry instead of duplicating it.
		for i := range e.msgs {
			if msg.ClientID != "" && e.msgs[i].ClientID == msg.ClientID {
				if e.msgs[i].ID == "" {
					e.msgs[i].ID = msg.ID
				}
				if e.msgs[i].Status == StatusSending || e.msgs[i].Status == StatusRetrying {
					e.msgs[i].Status = StatusSent
				}
				e.touchSummaryLocked(msg)
				return
			}
			if msg.ID != "" && e.msgs[i].ID == msg.ID {
				// Already known (e.g. delivered before via reload).
				return
			}
		}
		e.msgs = append(e.msgs, msg)
	}
	e.touchSummaryLocked(msg)
}

func (e *Engine) mergeEdited(msg Message) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if msg.ConversationID == e.selected {
		for i := range e.msgs {
			if e.msgs[i].ID == msg.ID {
				// A local edit in flight wins; its settle path decides.
				if !e.msgs[i].Editing {
					e.msgs[i].Content = msg.Content
					e.msgs[i].Edited = true
				}
				break
			}
		}
	}
	// Refresh the summary only when it points at the edited message.
	for i := range e.convs {
		if e.convs[i].ID == msg.ConversationID {
			if lm := e.convs[i].LastMessage; lm != nil && lm.ID == msg.ID {
				m := msg
				e.convs[i].LastMessage = &m
			}
			break
		}
	}
}

func (e *Engine) mergeDeleted(p realtime.DeletedPayload) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p.ConversationID != e.selected {
		return
	}
	kept := e.msgs[:0]
	for _, m := range e.msgs {
		if m.ID != p.MessageID {
			kept = append(kept, m)
		}
	}
	e.msgs = kept
}

// touchSummaryLocked updates the conversation's last-message summary
// and unread counter. Unknown conversations are left alone. Caller
// holds e.mu.
func (e *Engine) touchSummaryLocked(msg Message) {
	for i := range e.convs {
		if e.convs[i].ID != msg.ConversationID {
			continue
		}
		m := msg
		e.convs[i].LastMessage = &m
		if msg.ConversationID != e.selected {
			e.convs[i].Unread++
		}
		return
	}
}

func sortByTimestamp(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp.Before(msgs[j].Timestamp)
	})
}
