// Package sync implements the conversation sync engine: it owns the
// in-memory conversation list and, for the open conversation, the
// message list, and keeps both consistent with the gateway through
// request/response reconciliation and push-event merging. All mutation
// of the collections happens through the engine; other layers only read
// snapshots.
package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/realtime"
	"github.com/gaprio/chatkit/internal/session"
	"go.uber.org/zap"
)

// Gateway is the slice of the api client the engine depends on.
type Gateway interface {
	ListConversations(ctx context.Context, userID string) ([]api.Conversation, error)
	CreateDirectConversation(ctx context.Context, userID1, userID2 string) (*api.Conversation, error)
	CreateGroup(ctx context.Context, req *api.CreateGroupRequest) (*api.Conversation, error)
	DeleteConversation(ctx context.Context, id, requesterID string) error
	DeleteGroup(ctx context.Context, groupID, requesterID string) error
	AddGroupMember(ctx context.Context, groupID, actorID, userID string) error
	RemoveGroupMember(ctx context.Context, groupID, userID, actorID string) error
	UpdateMemberRole(ctx context.Context, groupID, userID, actorID, role string) error
	GetGroupMembers(ctx context.Context, groupID string) ([]api.Member, error)
	ListMessages(ctx context.Context, conversationID string, limit int, before time.Time) ([]api.Message, error)
	SendMessage(ctx context.Context, req *api.SendMessageRequest) (*api.Message, error)
	EditMessage(ctx context.Context, messageID, editorID, newContent string) (*api.Message, error)
	DeleteMessage(ctx context.Context, messageID, operatorID string) error
	SearchUsers(ctx context.Context, query string, limit int) ([]api.User, error)
}

// Feed is the real-time subscription the engine drives on conversation
// switches. *ChannelFeed adapts realtime.Channel to it.
type Feed interface {
	Switch(ctx context.Context, conversationID string) error
}

// ChannelFeed adapts a realtime.Channel to the Feed interface.
type ChannelFeed struct {
	Channel *realtime.Channel
}

func (f *ChannelFeed) Switch(ctx context.Context, conversationID string) error {
	_, err := f.Channel.Switch(ctx, conversationID)
	return err
}

// IdentitySource supplies the authenticated identity. *session.Store
// satisfies it.
type IdentitySource interface {
	Current() (session.Identity, bool)
}

// Engine is the conversation sync engine.
type Engine struct {
	gw       Gateway
	feed     Feed
	bus      *bus.Bus
	identity IdentitySource
	logger   *zap.Logger
	search   *debouncer
	pageSize int
	cancel   context.CancelFunc

	mu       stdsync.Mutex
	convs    []Conversation
	selected string
	msgs     []Message
	recent   []api.User
}

// Options tunes engine behaviour.
type Options struct {
	// SearchDebounce is the trailing debounce window for user search.
	SearchDebounce time.Duration
	// PageSize is the message page size for loads.
	PageSize int
}

// NewEngine creates a sync engine. feed may be nil when no real-time
// channel is available; the engine then relies on manual reloads.
func NewEngine(gw Gateway, feed Feed, identity IdentitySource, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = 300 * time.Millisecond
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	return &Engine{
		gw:       gw,
		feed:     feed,
		bus:      b,
		identity: identity,
		logger:   logger,
		search:   newDebouncer(opts.SearchDebounce),
		pageSize: opts.PageSize,
	}
}

// Start subscribes the engine to push events on the bus.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	ch, unsub := e.bus.Subscribe("message.", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				e.handlePush(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the engine and cancels any pending debounced search.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.search.cancel()
}

func (e *Engine) self() (session.Identity, error) {
	id, ok := e.identity.Current()
	if !ok {
		return session.Identity{}, api.Errf(api.KindAuth, "not authenticated")
	}
	return id, nil
}

// Open orchestrates a conversation switch as one transition: detach the
// previous real-time subscription, attach the new one, replace the
// message list with the target conversation's page, and zero its unread
// counter. An empty id closes the current conversation.
func (e *Engine) Open(ctx context.Context, conversationID string) error {
	if e.feed != nil {
		if err := e.feed.Switch(ctx, conversationID); err != nil {
			// Stale pushes are survivable; loads are not, so keep going.
			e.logger.Warn("real-time subscription unavailable", zap.Error(err))
		}
	}

	if conversationID == "" {
		e.mu.Lock()
		e.selected = ""
		e.msgs = nil
		e.mu.Unlock()
		return nil
	}

	msgs, err := e.gw.ListMessages(ctx, conversationID, e.pageSize, time.Time{})
	if err != nil {
		return err
	}

	list := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, fromAPIMessage(m))
	}
	sortByTimestamp(list)

	e.mu.Lock()
	e.selected = conversationID
	e.msgs = list
	for i := range e.convs {
		if e.convs[i].ID == conversationID {
			e.convs[i].Unread = 0
			break
		}
	}
	e.mu.Unlock()
	return nil
}

// Selected returns the open conversation id, or "".
func (e *Engine) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}
