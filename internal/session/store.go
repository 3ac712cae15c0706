// Package session tracks the authenticated identity and bearer
// credential, and makes both durable across restarts. The session is
// all-or-nothing: either credential and identity are both present, or
// the client is unauthenticated.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gaprio/chatkit/internal/api"
	"github.com/gaprio/chatkit/internal/bus"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Vault keys, fixed logical names for the persisted session.
const (
	KeyToken = "gaprio_token"
	KeyUser  = "gaprio_user"
)

// Identity is the authenticated user record.
type Identity struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

// Authenticator performs the credential exchange. *api.Client satisfies it.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResult, error)
}

// Store holds the current session. It implements api.CredentialSource,
// so every outbound request reads the credential at call time.
type Store struct {
	mu       sync.RWMutex
	vault    Vault
	auth     Authenticator
	bus      *bus.Bus
	logger   *zap.Logger
	token    string
	identity *Identity
}

// NewStore creates a session store and reloads any persisted session
// from the vault.
func NewStore(vault Vault, auth Authenticator, b *bus.Bus, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{vault: vault, auth: auth, bus: b, logger: logger}
	s.reload()
	return s
}

func (s *Store) reload() {
	token, err := s.vault.Get(KeyToken)
	if err != nil {
		s.logger.Warn("failed to read persisted token", zap.Error(err))
		return
	}
	userJSON, err := s.vault.Get(KeyUser)
	if err != nil {
		s.logger.Warn("failed to read persisted identity", zap.Error(err))
		return
	}
	if token == "" || userJSON == "" {
		// Partial persisted state is not a valid session.
		return
	}
	var id Identity
	if err := json.Unmarshal([]byte(userJSON), &id); err != nil {
		s.logger.Warn("corrupt persisted identity, discarding session", zap.Error(err))
		return
	}
	s.token = token
	s.identity = &id
}

// Login authenticates and, on success, stores the credential and
// identity atomically. On failure the prior state is left untouched.
func (s *Store) Login(ctx context.Context, username, password string) error {
	res, err := s.auth.Login(ctx, username, password)
	if err != nil {
		return err
	}

	id := &Identity{
		ID:        res.UserID,
		Username:  res.Username,
		Role:      res.Role,
		ExpiresAt: res.ExpiresAt,
	}

	s.mu.Lock()
	s.token = res.Token
	s.identity = id
	s.mu.Unlock()
	s.persist()

	s.logger.Info("logged in", zap.String("user_id", id.ID), zap.String("username", id.Username))
	if s.bus != nil {
		s.bus.Publish(bus.Now(bus.KindSessionChanged, *id))
	}
	return nil
}

// Logout clears the credential and identity unconditionally. It always
// succeeds and repeated calls are no-ops.
func (s *Store) Logout() {
	s.mu.Lock()
	wasAuthed := s.token != "" || s.identity != nil
	s.token = ""
	s.identity = nil
	s.mu.Unlock()
	s.persist()

	if wasAuthed {
		s.logger.Info("logged out")
		if s.bus != nil {
			s.bus.Publish(bus.Now(bus.KindSessionChanged, Identity{}))
		}
	}
}

// Invalidate is the auth-failure hook wired into the gateway client: a
// request rejected for a bad credential ends the session.
func (s *Store) Invalidate() {
	s.logger.Warn("credential rejected by gateway, invalidating session")
	s.Logout()
}

func (s *Store) persist() {
	s.mu.RLock()
	token := s.token
	identity := s.identity
	s.mu.RUnlock()

	if token == "" || identity == nil {
		if err := s.vault.Delete(KeyToken); err != nil {
			s.logger.Warn("failed to clear persisted token", zap.Error(err))
		}
		if err := s.vault.Delete(KeyUser); err != nil {
			s.logger.Warn("failed to clear persisted identity", zap.Error(err))
		}
		return
	}

	userJSON, err := json.Marshal(identity)
	if err != nil {
		s.logger.Warn("failed to encode identity", zap.Error(err))
		return
	}
	if err := s.vault.Set(KeyToken, token); err != nil {
		s.logger.Warn("failed to persist token", zap.Error(err))
	}
	if err := s.vault.Set(KeyUser, string(userJSON)); err != nil {
		s.logger.Warn("failed to persist identity", zap.Error(err))
	}
}

// Token returns the current bearer credential, or "" when logged out.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Current returns the authenticated identity, or false when logged out.
func (s *Store) Current() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

// IsAuthenticated reports whether both credential and identity are
// present and the credential has not expired.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	token := s.token
	identity := s.identity
	s.mu.RUnlock()

	if token == "" || identity == nil {
		return false
	}
	exp := identity.ExpiresAt
	if exp.IsZero() {
		exp = tokenExpiry(token)
	}
	if !exp.IsZero() && time.Now().After(exp) {
		return false
	}
	return true
}

// tokenExpiry reads the exp claim from a JWT credential without
// verifying the signature; the client holds no signing key and only
// needs the expiry for a local staleness check.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
