package store

// Conversation is a cached conversation summary row.
type Conversation struct {
	ID                 string
	Kind               string
	Title              string
	UnreadCount        int
	LastMessageAt      int64
	LastMessagePreview string
}

// Message is a cached message row. MsgID is the server id; ClientID is
// the send correlation id when the message originated locally.
type Message struct {
	RowID          int64
	ConversationID string
	MsgID          string
	ClientID       string
	SenderID       string
	SenderName     string
	Content        string
	Edited         bool
	Timestamp      int64
}
