// Package realtime maintains the WebSocket push channel to the gateway.
// At most one conversation subscription is active at a time; switching
// conversations tears down the previous subscription before attaching
// the new one. A lost channel is "real-time unavailable", never fatal:
// events flow again after reconnect, and the client falls back to
// manual reloads while degraded.
package realtime

import (
	"context"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/gaprio/chatkit/internal/status"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
)

// Reconnect policy.
const (
	reconnectBaseDelay   = 1 * time.Second
	reconnectMaxDelay    = 30 * time.Second
	maxReconnectAttempts = 10
)

// Channel dials per-conversation push subscriptions.
type Channel struct {
	baseURL string
	creds   api.CredentialSource
	bus     *bus.Bus
	machine *status.Machine
	logger  *zap.Logger

	reconnectBase time.Duration
	reconnectMax  time.Duration
	maxAttempts   int

	mu      sync.Mutex
	current *Subscription
}

// NewChannel creates a push channel factory. baseURL is the gateway API
// base; the ws:// endpoint is derived from it.
func NewChannel(baseURL string, creds api.CredentialSource, b *bus.Bus, m *status.Machine, logger *zap.Logger) *Channel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Channel{
		baseURL:       strings.TrimRight(baseURL, "/"),
		creds:         creds,
		bus:           b,
		machine:       m,
		logger:        logger,
		reconnectBase: reconnectBaseDelay,
		reconnectMax:  reconnectMaxDelay,
		maxAttempts:   maxReconnectAttempts,
	}
}

// wsURL converts the HTTP base URL into the subscription endpoint.
func (c *Channel) wsURL(conversationID string) string {
	u := c.baseURL
	if strings.HasPrefix(u, "https://") {
		u = "wss://" + strings.TrimPrefix(u, "https://")
	} else if strings.HasPrefix(u, "http://") {
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/conversations/" + conversationID
}

// Subscription is one live per-conversation event feed.
type Subscription struct {
	ConversationID string

	cancel context.CancelFunc
	done   chan struct{}
}

// Close tears the subscription down. Safe to call more than once and on
// nil receivers; it returns once the read loop has exited.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.cancel()
	<-s.done
}

// Switch detaches the current subscription, if any, and attaches a new
// one for the given conversation. An empty id only detaches.
func (c *Channel) Switch(ctx context.Context, conversationID string) (*Subscription, error) {
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.mu.Unlock()
	prev.Close()

	if conversationID == "" {
		_ = c.machine.Transition(status.Disconnected)
		return nil, nil
	}

	sub, err := c.subscribe(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.current = sub
	c.mu.Unlock()
	return sub, nil
}

func (c *Channel) subscribe(ctx context.Context, conversationID string) (*Subscription, error) {
	_ = c.machine.Transition(status.Connecting)

	conn, err := c.dial(ctx, conversationID)
	if err != nil {
		_ = c.machine.Transition(status.Degraded)
		return nil, api.Errf(api.KindRealtimeUnavailable, "subscribe %s: %v", conversationID, err)
	}
	_ = c.machine.Transition(status.Connected)

	// The caller's context only scopes the dial. The read loop runs on
	// its own lifetime, ended by Close or reconnect exhaustion, so a
	// subscription survives the startup hook or command that opened it.
	loopCtx, cancel := context.WithCancel(context.Background())
	sub := &Subscription{
		ConversationID: conversationID,
		cancel:         cancel,
		done:           make(chan struct{}),
	}
	go c.readLoop(loopCtx, conn, sub)
	return sub, nil
}

func (c *Channel) dial(ctx context.Context, conversationID string) (*websocket.Conn, error) {
	header := http.Header{}
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
	}
	conn, _, err := websocket.Dial(ctx, c.wsURL(conversationID), &websocket.DialOptions{
		HTTPHeader: header,
	})
	return conn, err
}

func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn, sub *Subscription) {
	defer close(sub.done)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			_ = conn.Close(websocket.StatusNormalClosure, "")
			if ctx.Err() != nil {
				_ = c.machine.Transition(status.Disconnected)
				return
			}
			c.logger.Warn("push channel lost", zap.String("conversation_id", sub.ConversationID), zap.Error(err))
			conn = c.reconnect(ctx, sub.ConversationID)
			if conn == nil {
				return
			}
			continue
		}

		evt, err := Decode(data)
		if err != nil {
			c.logger.Warn("dropping undecodable push event", zap.Error(err))
			continue
		}
		c.bus.Publish(evt)
	}
}

// reconnect retries the dial with exponential backoff and jitter.
// Returns nil once the context is cancelled or attempts are exhausted,
// leaving the machine Degraded so callers know pushes may be stale.
func (c *Channel) reconnect(ctx context.Context, conversationID string) *websocket.Conn {
	_ = c.machine.Transition(status.Reconnecting)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		delay := time.Duration(float64(c.reconnectBase) * math.Pow(2, float64(attempt-1)))
		if delay > c.reconnectMax {
			delay = c.reconnectMax
		}
		// Full jitter keeps reconnecting clients from stampeding.
		delay = time.Duration(rand.Int63n(int64(delay) + 1))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			_ = c.machine.Transition(status.Disconnected)
			return nil
		}

		conn, err := c.dial(ctx, conversationID)
		if err == nil {
			_ = c.machine.Transition(status.Connected)
			c.logger.Info("push channel reconnected",
				zap.String("conversation_id", conversationID),
				zap.Int("attempt", attempt))
			return conn
		}
		c.logger.Warn("reconnect attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	_ = c.machine.Transition(status.Degraded)
	c.logger.Error("push channel degraded, falling back to manual reloads",
		zap.String("conversation_id", conversationID))
	return nil
}
