package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/adsdash/internal/credential"
	"github.com/nhle/adsdash/internal/model"
)

// Version is the current schema version of the persisted blob.
const Version = 1

// itemKey is the single keyring item holding the blob.
const itemKey = "session"

// AuthState is the persisted part of the auth session.
type AuthState struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`

	// User is kept raw so a malformed record does not invalidate tokens.
	User json.RawMessage `json:"user,omitempty"`
}

// GoogleState is the cached Google connection.
type GoogleState struct {
	Connected bool              `json:"connected"`
	User      *model.GoogleUser `json:"user,omitempty"`
}

// SidebarState holds the navigation panel flags.
type SidebarState struct {
	Open      bool `json:"open"`
	Collapsed bool `json:"collapsed"`
}

// State is the whole persisted client session.
type State struct {
	Version int          `json:"version"`
	Auth    AuthState    `json:"auth"`
	Google  GoogleState  `json:"google"`
	Sidebar SidebarState `json:"sidebar"`
}

// Empty returns the state of a fresh install.
func Empty() State {
	return State{
		Version: Version,
		Sidebar: SidebarState{Open: true},
	}
}

// Decode parses a blob. Blobs from another schema version decode to Empty.
func Decode(data []byte) (State, error) {
	if len(data) == 0 {
		return Empty(), nil
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return Empty(), fmt.Errorf("decoding session: %w", err)
	}
	if s.Version != Version {
		return Empty(), nil
	}
	return s, nil
}

// Encode serializes the state with the current version stamp.
func Encode(s State) ([]byte, error) {
	s.Version = Version
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}
	return data, nil
}

// ParseUser decodes the stored user record. It returns nil when the record
// is absent or unparsable.
func (a AuthState) ParseUser() *model.User {
	if len(a.User) == 0 || string(a.User) == "null" {
		return nil
	}
	var u model.User
	if err := json.Unmarshal(a.User, &u); err != nil {
		return nil
	}
	return &u
}

// Backend persists raw session bytes.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
}

// Store owns the in-memory session and writes every change through to
// the backend. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	state   State
}

// Open loads the session from backend. A missing or corrupt blob yields
// an empty session.
func Open(backend Backend) *Store {
	s := &Store{backend: backend, state: Empty()}

	data, err := backend.Get(itemKey)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			slog.Warn("loading session", "err", err)
		}
		return s
	}
	st, err := Decode(data)
	if err != nil {
		slog.Warn("discarding unreadable session", "err", err)
	}
	s.state = st
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn to the state and persists the result.
func (s *Store) Update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state
	fn(&next)
	data, err := Encode(next)
	if err != nil {
		return err
	}
	if err := s.backend.Set(itemKey, data); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	s.state = next
	return nil
}

// AccessToken returns the stored bearer token, or "".
func (s *Store) AccessToken() string {
	return s.Snapshot().Auth.AccessToken
}

// RefreshToken returns the stored refresh token, or "".
func (s *Store) RefreshToken() string {
	return s.Snapshot().Auth.RefreshToken
}

// SetAccessToken persists a refreshed access token.
func (s *Store) SetAccessToken(token string) error {
	return s.Update(func(st *State) {
		st.Auth.AccessToken = token
	})
}

// Clear wipes auth and Google data. Sidebar preferences survive.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sidebar := s.state.Sidebar
	s.state = Empty()
	s.state.Sidebar = sidebar

	data, err := Encode(s.state)
	if err != nil {
		return err
	}
	if err := s.backend.Set(itemKey, data); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}

// ToggleSidebar flips the open flag.
func (s *Store) ToggleSidebar() error {
	return s.Update(func(st *State) { st.Sidebar.Open = !st.Sidebar.Open })
}

// ToggleSidebarCollapse flips the collapsed flag.
func (s *Store) ToggleSidebarCollapse() error {
	return s.Update(func(st *State) { st.Sidebar.Collapsed = !st.Sidebar.Collapsed })
}
