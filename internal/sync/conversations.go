package sync

import (
	"context"
	"strings"

	"github.com/gaprio/chatkit/internal/api"
	"go.uber.org/zap"
)

const maxRecentContacts = 5

// LoadConversations fetches the authenticated user's conversations and
// replaces the local set entirely. Concurrent identical calls share one
// network request through the gateway's in-flight registry.
func (e *Engine) LoadConversations(ctx context.Context) ([]Conversation, error) {
	self, err := e.self()
	if err != nil {
		return nil, err
	}

	raw, err := e.gw.ListConversations(ctx, self.ID)
	if err != nil {
		return nil, err
	}

	convs := make([]Conversation, 0, len(raw))
	for _, c := range raw {
		convs = append(convs, fromAPIConversation(c))
	}

	e.mu.Lock()
	e.convs = convs
	snapshot := snapshotConversations(e.convs)
	e.mu.Unlock()
	return snapshot, nil
}

// Conversations returns a snapshot of the local conversation list.
func (e *Engine) Conversations() []Conversation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshotConversations(e.convs)
}

// FilterConversations returns conversations whose display name contains
// the query, case-insensitively. A pure projection over the snapshot.
func (e *Engine) FilterConversations(query string) []Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	all := e.Conversations()
	if query == "" {
		return all
	}
	selfID := ""
	if id, ok := e.identity.Current(); ok {
		selfID = id.ID
	}
	var out []Conversation
	for _, c := range all {
		if strings.Contains(strings.ToLower(c.DisplayName(selfID)), query) {
			out = append(out, c)
		}
	}
	return out
}

// CreateDirect creates (or resumes) a direct conversation with the
// given user, inserts it at the head of the local list and opens it.
func (e *Engine) CreateDirect(ctx context.Context, otherUserID string) (*Conversation, error) {
	self, err := e.self()
	if err != nil {
		return nil, err
	}

	raw, err := e.gw.CreateDirectConversation(ctx, self.ID, otherUserID)
	if err != nil {
		return nil, err
	}
	conv := fromAPIConversation(*raw)

	e.mu.Lock()
	e.upsertHeadLocked(conv)
	e.mu.Unlock()

	if err := e.Open(ctx, conv.ID); err != nil {
		// The conversation exists either way; the caller can reload.
		e.logger.Warn("failed to open new conversation", zap.String("conversation_id", conv.ID), zap.Error(err))
	}
	return &conv, nil
}

// StartDirectWith records the user in the recent-contacts list and
// starts a direct conversation, the search-to-chat flow.
func (e *Engine) StartDirectWith(ctx context.Context, user api.User) (*Conversation, error) {
	e.mu.Lock()
	e.recent = pushRecent(e.recent, user)
	e.mu.Unlock()
	return e.CreateDirect(ctx, user.ID)
}

// RecentContacts returns the bounded list of recently contacted users,
// newest first.
func (e *Engine) RecentContacts() []api.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]api.User, len(e.recent))
	copy(out, e.recent)
	return out
}

// CreateGroup creates a group conversation. The local list is updated
// optimistically; a server that only exposes the group on the next full
// load is tolerated because the upsert is idempotent on id.
func (e *Engine) CreateGroup(ctx context.Context, name, description string, memberIDs []string) (*Conversation, error) {
	self, err := e.self()
	if err != nil {
		return nil, err
	}

	raw, err := e.gw.CreateGroup(ctx, &api.CreateGroupRequest{
		Name:        name,
		Description: description,
		CreatorID:   self.ID,
		MemberIDs:   memberIDs,
	})
	if err != nil {
		return nil, err
	}
	conv := fromAPIConversation(*raw)

	e.mu.Lock()
	e.upsertHeadLocked(conv)
	e.mu.Unlock()
	return &conv, nil
}

// DeleteConversation requests deletion and removes the conversation
// locally only after the server confirms.
func (e *Engine) DeleteConversation(ctx context.Context, conversationID string) error {
	self, err := e.self()
	if err != nil {
		return err
	}
	if err := e.gw.DeleteConversation(ctx, conversationID, self.ID); err != nil {
		return err
	}
	e.removeConversation(ctx, conversationID)
	return nil
}

// DeleteGroup requests group deletion and removes it locally only after
// the server confirms.
func (e *Engine) DeleteGroup(ctx context.Context, groupID string) error {
	self, err := e.self()
	if err != nil {
		return err
	}
	if err := e.gw.DeleteGroup(ctx, groupID, self.ID); err != nil {
		return err
	}
	e.removeConversation(ctx, groupID)
	return nil
}

// AddMember adds a user to a group and reconciles the local member list
// from the server on success.
func (e *Engine) AddMember(ctx context.Context, groupID, userID string) error {
	self, err := e.self()
	if err != nil {
		return err
	}
	if err := e.gw.AddGroupMember(ctx, groupID, self.ID, userID); err != nil {
		return err
	}
	e.refreshMembers(ctx, groupID)
	return nil
}

// RemoveMember removes a user from a group.
func (e *Engine) RemoveMember(ctx context.Context, groupID, userID string) error {
	self, err := e.self()
	if err != nil {
		return err
	}
	if err := e.gw.RemoveGroupMember(ctx, groupID, userID, self.ID); err != nil {
		return err
	}
	e.refreshMembers(ctx, groupID)
	return nil
}

// UpdateMemberRole changes a member's role in a group.
func (e *Engine) UpdateMemberRole(ctx context.Context, groupID, userID, role string) error {
	self, err := e.self()
	if err != nil {
		return err
	}
	if err := e.gw.UpdateMemberRole(ctx, groupID, userID, self.ID, role); err != nil {
		return err
	}
	e.refreshMembers(ctx, groupID)
	return nil
}

// LeaveGroup removes the current identity from the group and, on
// success, drops the conversation from the local list.
func (e *Engine) LeaveGroup(ctx context.Context, groupID string) error {
	self, err := e.self()
	if err != nil {
		return err
	}
	if err := e.gw.RemoveGroupMember(ctx, groupID, self.ID, self.ID); err != nil {
		return err
	}
	e.removeConversation(ctx, groupID)
	return nil
}

// removeConversation drops the conversation locally and closes it if it
// was the open one.
func (e *Engine) removeConversation(ctx context.Context, conversationID string) {
	e.mu.Lock()
	kept := e.convs[:0]
	for _, c := range e.convs {
		if c.ID != conversationID {
			kept = append(kept, c)
		}
	}
	e.convs = kept
	wasSelected := e.selected == conversationID
	e.mu.Unlock()

	if wasSelected {
		if err := e.Open(ctx, ""); err != nil {
			e.logger.Warn("failed to close removed conversation", zap.Error(err))
		}
	}
}

// refreshMembers reconciles a group's member list from the server after
// a membership mutation. Failures only log: the mutation itself already
// succeeded and the next full load converges.
func (e *Engine) refreshMembers(ctx context.Context, groupID string) {
	members, err := e.gw.GetGroupMembers(ctx, groupID)
	if err != nil {
		e.logger.Warn("failed to refresh group members", zap.String("group_id", groupID), zap.Error(err))
		return
	}
	e.mu.Lock()
	for i := range e.convs {
		if e.convs[i].ID == groupID {
			e.convs[i].Members = members
			break
		}
	}
	e.mu.Unlock()
}

// upsertHeadLocked inserts the conversation at the head of the list, or
// moves the existing entry there. Caller holds e.mu.
func (e *Engine) upsertHeadLocked(conv Conversation) {
	kept := make([]Conversation, 0, len(e.convs)+1)
	kept = append(kept, conv)
	for _, c := range e.convs {
		if c.ID != conv.ID {
			kept = append(kept, c)
		}
	}
	e.convs = kept
}

func snapshotConversations(convs []Conversation) []Conversation {
	out := make([]Conversation, len(convs))
	copy(out, convs)
	return out
}

func pushRecent(recent []api.User, user api.User) []api.User {
	out := make([]api.User, 0, maxRecentContacts)
	out = append(out, user)
	for _, u := range recent {
		if u.ID != user.ID && len(out) < maxRecentContacts {
			out = append(out, u)
		}
	}
	return out
}
