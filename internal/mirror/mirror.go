// Package mirror copies push traffic into the local SQLite cache so
// history survives offline. It subscribes to message events on the bus
// and applies them idempotently; replaying an event converges instead
// of duplicating.
package mirror

import (
	"context"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/realtime"
	"github.com/gaprio/chatkit/internal/store"
	"go.uber.org/zap"
)

// CheckpointKey is the kv key recording the last mirrored event time in
// unix milliseconds.
const CheckpointKey = "last_event_at"

const previewLen = 100

// Mirror ingests message events into the cache store.
type Mirror struct {
	db     *store.DB
	bus    *bus.Bus
	logger *zap.Logger
	cancel context.CancelFunc
}

// New creates a mirror.
func New(db *store.DB, b *bus.Bus, logger *zap.Logger) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mirror{db: db, bus: b, logger: logger}
}

// Start subscribes to message events on the bus.
func (m *Mirror) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	ch, unsub := m.bus.Subscribe("message.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				m.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the mirror.
func (m *Mirror) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Mirror) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageCreated, bus.KindMessageEdited:
		msg, ok := evt.Payload.(api.Message)
		if !ok {
			return
		}
		if err := m.IngestMessage(&msg); err != nil {
			m.logger.Error("failed to mirror message", zap.Error(err), zap.String("msg_id", msg.ID))
			return
		}
		m.checkpoint(evt.Timestamp)
	case bus.KindMessageDeleted:
		p, ok := evt.Payload.(realtime.DeletedPayload)
		if !ok {
			return
		}
		if err := m.db.DeleteMessage(p.ConversationID, p.MessageID); err != nil {
			m.logger.Error("failed to mirror message delete", zap.Error(err), zap.String("msg_id", p.MessageID))
			return
		}
		m.checkpoint(evt.Timestamp)
	}
}

// IngestMessage upserts one message and touches its conversation
// summary (idempotent).
func (m *Mirror) IngestMessage(msg *api.Message) error {
	ts := msg.Timestamp.UnixMilli()
	if err := m.db.UpsertConversation(&store.Conversation{
		ID:                 msg.ConversationID,
		LastMessageAt:      ts,
		LastMessagePreview: truncate(msg.Content, previewLen),
	}); err != nil {
		return err
	}
	return m.db.UpsertMessage(&store.Message{
		ConversationID: msg.ConversationID,
		MsgID:          msg.ID,
		ClientID:       msg.ClientID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		Edited:         msg.Edited,
		Timestamp:      ts,
	})
}

// Seed bulk-loads a conversation page fetched over HTTP into the cache,
// in one transaction.
func (m *Mirror) Seed(conv *api.Conversation, msgs []api.Message) error {
	tx, err := m.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	title := conv.Name
	lastAt := int64(0)
	preview := ""
	if conv.LastMessage != nil {
		lastAt = conv.LastMessage.Timestamp.UnixMilli()
		preview = truncate(conv.LastMessage.Content, previewLen)
	}
	if _, err := tx.Exec(`
		INSERT INTO conversations (id, kind, title, unread_count, last_message_at, last_message_preview, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE conversations.title END,
			last_message_at = MAX(conversations.last_message_at, excluded.last_message_at),
			updated_at = excluded.updated_at`,
		conv.ID, conv.Kind, title, conv.UnreadCount, lastAt, preview, now); err != nil {
		return err
	}

	for _, msg := range msgs {
		if _, err := tx.Exec(`
			INSERT INTO messages (conversation_id, msg_id, client_id, sender_id, sender_name, content, edited, timestamp, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
				sender_name = excluded.sender_name,
				content = excluded.content,
				edited = excluded.edited`,
			msg.ConversationID, msg.ID, msg.ClientID, msg.SenderID, msg.SenderName, msg.Content, msg.Edited, msg.Timestamp.UnixMilli(), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (m *Mirror) checkpoint(at time.Time) {
	if err := m.db.SetKV(CheckpointKey, strconv.FormatInt(at.UnixMilli(), 10)); err != nil {
		m.logger.Warn("failed to update mirror checkpoint", zap.Error(err))
	}
}

// truncate cuts s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
