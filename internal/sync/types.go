package sync

import (
	"time"

	"github.com/gaprio/chatkit/internal/api"
)

// ConversationKind tags the two conversation variants.
type ConversationKind string

const (
	Direct ConversationKind = "direct"
	Group  ConversationKind = "group"
)

// Conversation is the engine-owned view of a conversation. Direct
// conversations carry exactly two participants; groups carry name,
// description, creator and the member list.
type Conversation struct {
	ID           string
	Kind         ConversationKind
	Participants []api.User
	Name         string
	Description  string
	CreatorID    string
	Members      []api.Member
	LastMessage  *Message
	Unread       int
}

// DisplayName resolves what a conversation is called from the point of
// view of the given user: the group name, or the other participant.
func (c *Conversation) DisplayName(selfID string) string {
	if c.Kind == Group {
		return c.Name
	}
	for _, p := range c.Participants {
		if p.ID != selfID {
			if p.FullName != "" {
				return p.FullName
			}
			return p.Username
		}
	}
	return c.ID
}

// MessageStatus is the delivery state of a message in the local list.
type MessageStatus string

const (
	StatusSending  MessageStatus = "sending"
	StatusSent     MessageStatus = "sent"
	StatusFailed   MessageStatus = "failed"
	StatusRetrying MessageStatus = "retrying"
	// StatusDeletePending marks an entry whose delete request is in
	// flight; the entry is already hidden from snapshots.
	StatusDeletePending MessageStatus = "delete_pending"
)

// Message is the engine-owned view of a message. ClientID is assigned
// locally before the server confirms and doubles as the correlation key
// for merging the optimistic entry with its push event; ID is empty
// until confirmation.
type Message struct {
	ID             string
	ClientID       string
	ConversationID string
	SenderID       string
	SenderName     string
	Content        string
	Timestamp      time.Time
	Status         MessageStatus
	Edited         bool
	// Editing is set while an edit request is in flight.
	Editing bool
}

func fromAPIConversation(c api.Conversation) Conversation {
	conv := Conversation{
		ID:           c.ID,
		Kind:         ConversationKind(c.Kind),
		Participants: c.Participants,
		Name:         c.Name,
		Description:  c.Description,
		CreatorID:    c.CreatorID,
		Members:      c.Members,
		Unread:       c.UnreadCount,
	}
	if c.LastMessage != nil {
		m := fromAPIMessage(*c.LastMessage)
		conv.LastMessage = &m
	}
	return conv
}

func fromAPIMessage(m api.Message) Message {
	return Message{
		ID:             m.ID,
		ClientID:       m.ClientID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		SenderName:     m.SenderName,
		Content:        m.Content,
		Timestamp:      m.Timestamp,
		Status:         StatusSent,
		Edited:         m.Edited,
	}
}
