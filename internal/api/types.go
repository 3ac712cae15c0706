package api

import "time"

// LoginResult is the payload returned by a successful authentication.
type LoginResult struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisterRequest carries the profile fields for account creation.
type RegisterRequest struct {
	FullName  string `json:"fullName"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// User is a user record as returned by the gateway.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Member is a group member with its role.
type Member struct {
	User User   `json:"user"`
	Role string `json:"role"`
}

// Conversation is a conversation record as returned by the gateway.
// Kind is "direct" or "group"; direct conversations carry exactly two
// participants, groups carry name/description/creator/members.
type Conversation struct {
	ID           string   `json:"id"`
	Kind         string   `json:"kind"`
	Participants []User   `json:"participants,omitempty"`
	Name         string   `json:"name,omitempty"`
	Description  string   `json:"description,omitempty"`
	CreatorID    string   `json:"creatorId,omitempty"`
	Members      []Member `json:"members,omitempty"`
	LastMessage  *Message `json:"lastMessage,omitempty"`
	UnreadCount  int      `json:"unreadCount,omitempty"`
}

// Message is a message record as returned by the gateway. ClientID is
// the client-generated correlation id echoed back by the server and in
// push events, used to merge an optimistic entry with its confirmation.
type Message struct {
	ID             string    `json:"id"`
	ClientID       string    `json:"clientId,omitempty"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName,omitempty"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
	Edited         bool      `json:"edited,omitempty"`
}

// SendMessageRequest is the payload for message creation.
type SendMessageRequest struct {
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
	ClientID       string `json:"clientId,omitempty"`
}

// CreateGroupRequest is the payload for group creation. The creator is
// always included in MemberIDs by the client before sending.
type CreateGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CreatorID   string   `json:"creatorId"`
	MemberIDs   []string `json:"memberIds"`
}
