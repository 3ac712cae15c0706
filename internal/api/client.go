// Package api implements the HTTP client for the Gaprio gateway:
// authentication, user search, conversation and group management, and
// message CRUD. Failures are reported as typed *Error values; callers
// branch on Kind rather than transport codes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "http://localhost:7000/api"
	DefaultTimeout = 30 * time.Second
)

// CredentialSource supplies the bearer credential for outbound requests.
// It is read at call time on every request so a logout or re-login is
// reflected immediately.
type CredentialSource interface {
	Token() string
}

// Client talks to the Gaprio gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialSource
	onAuthFail func()
	flight     *flightGroup
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the gateway base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithCredentialSource attaches the token provider.
func WithCredentialSource(cs CredentialSource) Option {
	return func(c *Client) { c.creds = cs }
}

// WithLogger attaches a logger. Nil loggers are tolerated.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a gateway client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		flight:     newFlightGroup(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// SetCredentialSource attaches the token provider after construction,
// for wiring orders where the session store is built from the client.
func (c *Client) SetCredentialSource(cs CredentialSource) {
	c.creds = cs
}

// SetAuthFailureHook registers the callback invoked when any request is
// rejected with an invalid credential. The session store uses it to
// invalidate itself, so one policy applies to every endpoint.
func (c *Client) SetAuthFailureHook(fn func()) {
	c.onAuthFail = fn
}

// wire error body, matching the gateway's {"message": ...} / {"error": ...}.
type errBody struct {
	Message string `json:"message"`
	ErrMsg  string `json:"error"`
	Field   string `json:"field"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	exec := func() ([]byte, error) { return c.roundTrip(ctx, method, path, query, body) }

	// Only idempotent reads are collapsed; see flightGroup.
	if method == http.MethodGet {
		return c.flight.Do(Fingerprint(method, path, query), exec)
	}
	return exec()
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.creds != nil {
		if token := c.creds.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Errf(KindNetwork, "%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Errf(KindNetwork, "%s %s: read response: %v", method, path, err)
	}

	if resp.StatusCode >= 400 {
		kind := kindForStatus(resp.StatusCode)
		var eb errBody
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(data, &eb) == nil {
			if eb.Message != "" {
				msg = eb.Message
			} else if eb.ErrMsg != "" {
				msg = eb.ErrMsg
			}
		}
		c.logger.Warn("gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(kind)))

		if kind == KindAuth && c.onAuthFail != nil {
			c.onAuthFail()
		}
		return nil, &Error{Kind: kind, Message: msg, Field: eb.Field}
	}

	return data, nil
}

func decode[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &v, nil
}

// ----------------------------------------------------------------------
// Auth
// ----------------------------------------------------------------------

// Login authenticates with username and password.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" {
		return nil, FieldErr("username", "username is required")
	}
	if password == "" {
		return nil, FieldErr("password", "password is required")
	}
	data, err := c.do(ctx, http.MethodPost, "/auth/login", nil, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	res, err := decode[LoginResult](data)
	if err != nil {
		return nil, err
	}
	// A 200 without a token is still a failed login.
	if res.Token == "" {
		return nil, Errf(KindAuth, "no token in login response")
	}
	return res, nil
}

// Register creates a new account. Obvious input problems are rejected
// before any network call.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) error {
	if req.Username == "" {
		return FieldErr("username", "username is required")
	}
	if req.Password == "" {
		return FieldErr("password", "password is required")
	}
	if req.Email != "" && !strings.Contains(req.Email, "@") {
		return FieldErr("email", "invalid email address")
	}
	_, err := c.do(ctx, http.MethodPost, "/auth/signup", nil, req)
	return err
}

// ----------------------------------------------------------------------
// Users
// ----------------------------------------------------------------------

// GetUser fetches a user by id.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	data, err := c.do(ctx, http.MethodGet, "/users/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[User](data)
}

// SearchUsers finds users matching the query. Queries shorter than two
// characters resolve to an empty list without a network call.
func (c *Client) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	q.Set("q", strings.TrimSpace(query))
	q.Set("limit", strconv.Itoa(limit))
	data, err := c.do(ctx, http.MethodGet, "/users/search", q, nil)
	if err != nil {
		return nil, err
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return users, nil
}

// UpdateProfile applies partial profile updates to a user.
func (c *Client) UpdateProfile(ctx context.Context, id string, fields map[string]any) (*User, error) {
	data, err := c.do(ctx, http.MethodPatch, "/users/"+id, nil, fields)
	if err != nil {
		return nil, err
	}
	return decode[User](data)
}

// ----------------------------------------------------------------------
// Conversations
// ----------------------------------------------------------------------

// ListConversations fetches all conversations for a user.
func (c *Client) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	data, err := c.do(ctx, http.MethodGet, "/conversations/user/"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	var convs []Conversation
	if err := json.Unmarshal(data, &convs); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return convs, nil
}

// GetConversation fetches one conversation by id.
func (c *Client) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	data, err := c.do(ctx, http.MethodGet, "/conversations/"+id, nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[Conversation](data)
}

// CreateDirectConversation creates (or returns the existing) two-party
// conversation between the given users.
func (c *Client) CreateDirectConversation(ctx context.Context, userID1, userID2 string) (*Conversation, error) {
	data, err := c.do(ctx, http.MethodPost, "/conversations/direct", nil, map[string]string{
		"userId1": userID1,
		"userId2": userID2,
	})
	if err != nil {
		return nil, err
	}
	return decode[Conversation](data)
}

// DeleteConversation removes a conversation on behalf of requester.
func (c *Client) DeleteConversation(ctx context.Context, id, requesterID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/conversations/"+id, nil, map[string]string{
		"requesterId": requesterID,
	})
	return err
}

// ----------------------------------------------------------------------
// Groups
// ----------------------------------------------------------------------

// CreateGroup creates a group conversation. The creator is added to the
// member list if absent.
func (c *Client) CreateGroup(ctx context.Context, req *CreateGroupRequest) (*Conversation, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, FieldErr("name", "group name is required")
	}
	found := false
	for _, id := range req.MemberIDs {
		if id == req.CreatorID {
			found = true
			break
		}
	}
	if !found {
		req.MemberIDs = append(req.MemberIDs, req.CreatorID)
	}
	data, err := c.do(ctx, http.MethodPost, "/conversations/group", nil, req)
	if err != nil {
		return nil, err
	}
	return decode[Conversation](data)
}

// ListGroups fetches the groups a user belongs to.
func (c *Client) ListGroups(ctx context.Context, userID string) ([]Conversation, error) {
	data, err := c.do(ctx, http.MethodGet, "/groups/user/"+userID, nil, nil)
	if err != nil {
		return nil, err
	}
	var groups []Conversation
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return groups, nil
}

// GetGroupMembers fetches a group's member list.
func (c *Client) GetGroupMembers(ctx context.Context, groupID string) ([]Member, error) {
	data, err := c.do(ctx, http.MethodGet, "/groups/"+groupID+"/members", nil, nil)
	if err != nil {
		return nil, err
	}
	var members []Member
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return members, nil
}

// UpdateGroup applies partial updates (name, description) to a group.
func (c *Client) UpdateGroup(ctx context.Context, groupID, actorID string, fields map[string]any) (*Conversation, error) {
	body := map[string]any{"actorId": actorID}
	for k, v := range fields {
		body[k] = v
	}
	data, err := c.do(ctx, http.MethodPatch, "/groups/"+groupID, nil, body)
	if err != nil {
		return nil, err
	}
	return decode[Conversation](data)
}

// DeleteGroup removes a group on behalf of requester.
func (c *Client) DeleteGroup(ctx context.Context, groupID, requesterID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/groups/"+groupID, nil, map[string]string{
		"requesterId": requesterID,
	})
	return err
}

// AddGroupMember adds userID to the group on behalf of actor.
func (c *Client) AddGroupMember(ctx context.Context, groupID, actorID, userID string) error {
	_, err := c.do(ctx, http.MethodPost, "/groups/"+groupID+"/members", nil, map[string]string{
		"actorId": actorID,
		"userId":  userID,
	})
	return err
}

// RemoveGroupMember removes userID from the group on behalf of actor.
// Removing yourself is how a member leaves a group.
func (c *Client) RemoveGroupMember(ctx context.Context, groupID, userID, actorID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/groups/"+groupID+"/members/"+userID, nil, map[string]string{
		"actorId": actorID,
	})
	return err
}

// UpdateMemberRole changes a member's role on behalf of actor.
func (c *Client) UpdateMemberRole(ctx context.Context, groupID, userID, actorID, role string) error {
	_, err := c.do(ctx, http.MethodPatch, "/groups/"+groupID+"/members/"+userID, nil, map[string]string{
		"actorId": actorID,
		"role":    role,
	})
	return err
}

// ----------------------------------------------------------------------
// Messages
// ----------------------------------------------------------------------

// ListMessages fetches a page of messages for a conversation, newest
// bounded by before (zero value means now).
func (c *Client) ListMessages(ctx context.Context, conversationID string, limit int, before time.Time) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}
	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if !before.IsZero() {
		q.Set("before", before.UTC().Format(time.RFC3339Nano))
	}
	data, err := c.do(ctx, http.MethodGet, "/messages/conversation/"+conversationID, q, nil)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return msgs, nil
}

// SendMessage creates a message. The returned record carries the server
// id and echoes the client correlation id.
func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, FieldErr("content", "message content is required")
	}
	data, err := c.do(ctx, http.MethodPost, "/messages", nil, req)
	if err != nil {
		return nil, err
	}
	return decode[Message](data)
}

// EditMessage replaces a message's content on behalf of editor.
func (c *Client) EditMessage(ctx context.Context, messageID, editorID, newContent string) (*Message, error) {
	if strings.TrimSpace(newContent) == "" {
		return nil, FieldErr("newContent", "message content is required")
	}
	data, err := c.do(ctx, http.MethodPatch, "/messages/"+messageID, nil, map[string]string{
		"editorId":   editorID,
		"newContent": newContent,
	})
	if err != nil {
		return nil, err
	}
	return decode[Message](data)
}

// DeleteMessage removes a message on behalf of operator.
func (c *Client) DeleteMessage(ctx context.Context, messageID, operatorID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/messages/"+messageID, nil, map[string]string{
		"operatorId": operatorID,
	})
	return err
}
