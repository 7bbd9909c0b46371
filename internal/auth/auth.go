// Package auth holds the operator's login session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/session"
)

// ErrEmptyCredentials is returned when username or password is blank.
var ErrEmptyCredentials = errors.New("username and password are required")

// Authenticator performs the credential exchange.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*api.LoginResponse, error)
}

// Store tracks whether the operator is logged in. Tokens live in the
// session store so the API client can refresh them independently.
type Store struct {
	mu sync.RWMutex

	sessions *session.Store
	client   Authenticator

	authenticated  bool
	user           *model.User
	profileMissing bool
}

// NewStore creates an auth store. Call InitializeAuth before use.
func NewStore(sessions *session.Store, client Authenticator) *Store {
	return &Store{sessions: sessions, client: client}
}

// InitializeAuth restores the session persisted by a previous run. Both
// tokens must be present for the operator to count as logged in; a missing
// or unreadable user record only marks the profile as missing.
func (s *Store) InitializeAuth() {
	st := s.sessions.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.authenticated = st.Auth.AccessToken != "" && st.Auth.RefreshToken != ""
	s.user = nil
	s.profileMissing = false
	if !s.authenticated {
		return
	}

	s.user = st.Auth.ParseUser()
	if s.user == nil {
		s.profileMissing = true
		slog.Warn("session restored without a user profile")
	}
}

// Login authenticates and persists the resulting session.
func (s *Store) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}

	resp, err := s.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	if resp.Access == "" || resp.Refresh == "" {
		return fmt.Errorf("login response is missing tokens")
	}

	err = s.sessions.Update(func(st *session.State) {
		st.Auth = session.AuthState{
			AccessToken:  resp.Access,
			RefreshToken: resp.Refresh,
			User:         resp.User,
		}
	})
	if err != nil {
		return err
	}

	user := session.AuthState{User: resp.User}.ParseUser()

	s.mu.Lock()
	s.authenticated = true
	s.user = user
	s.profileMissing = user == nil
	s.mu.Unlock()

	slog.Info("logged in", "username", username)
	return nil
}

// Logout forgets the session locally. The server is not contacted.
func (s *Store) Logout() error {
	s.Expire()
	if err := s.sessions.Clear(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	slog.Info("logged out")
	return nil
}

// Expire drops the in-memory session after the durable one has been
// cleared elsewhere, e.g. by a failed token refresh.
func (s *Store) Expire() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authenticated = false
	s.user = nil
	s.profileMissing = false
}

// IsAuthenticated reports whether a session is active.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// User returns the logged-in operator, or nil when unknown.
func (s *Store) User() *model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// ProfileMissing reports an authenticated session without a user record.
func (s *Store) ProfileMissing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profileMissing
}

// DisplayName is the name shown in the navbar.
func (s *Store) DisplayName() string {
	if u := s.User(); u != nil && u.Username != "" {
		return u.Username
	}
	return "Unknown user"
}
