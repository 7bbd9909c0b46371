// Package google tracks the link between the operator and a Google Ads
// account.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/session"
)

// ErrNoAuthURL is returned when the backend did not provide a consent URL.
var ErrNoAuthURL = errors.New("failed to get Google authentication URL")

// Backend is the subset of the API the connector needs.
type Backend interface {
	OAuthInstall(ctx context.Context, redirectURI string) (string, error)
	OAuthStatus(ctx context.Context) (*model.GoogleConnection, error)
	OAuthToken(ctx context.Context, ex api.OAuthExchange) (*api.OAuthResult, error)
}

// Connector owns the cached connection state. The state is written through
// to the session store so it survives restarts.
type Connector struct {
	backend     Backend
	sessions    *session.Store
	opener      Opener
	redirectURI string

	mu        sync.Mutex
	listeners []func(model.GoogleConnection)
}

// NewConnector creates a connector. redirectURI may be empty when no local
// callback listener is running.
func NewConnector(backend Backend, sessions *session.Store, opener Opener, redirectURI string) *Connector {
	if opener == nil {
		opener = BrowserOpener{}
	}
	return &Connector{
		backend:     backend,
		sessions:    sessions,
		opener:      opener,
		redirectURI: redirectURI,
	}
}

// OnChange registers fn to be called after every connection change.
func (c *Connector) OnChange(fn func(model.GoogleConnection)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the cached connection.
func (c *Connector) State() model.GoogleConnection {
	g := c.sessions.Snapshot().Google
	return model.GoogleConnection{IsConnected: g.Connected, GoogleUser: g.User}
}

// IsConnected reports the cached flag.
func (c *Connector) IsConnected() bool {
	return c.sessions.Snapshot().Google.Connected
}

// Connect requests a consent URL and opens it in the browser. The handshake
// completes later through Exchange.
func (c *Connector) Connect(ctx context.Context) (string, error) {
	authURL, err := c.backend.OAuthInstall(ctx, c.redirectURI)
	if err != nil {
		return "", err
	}
	if authURL == "" {
		return "", ErrNoAuthURL
	}
	if err := c.opener.Open(authURL); err != nil {
		return authURL, fmt.Errorf("opening browser: %w", err)
	}
	slog.Info("opened google consent page")
	return authURL, nil
}

// Exchange completes the handshake with the parameters delivered to the
// callback.
func (c *Connector) Exchange(ctx context.Context, code, state string) error {
	if code == "" {
		return fmt.Errorf("missing authorization code")
	}
	res, err := c.backend.OAuthToken(ctx, api.OAuthExchange{
		Code:        code,
		State:       state,
		RedirectURI: c.redirectURI,
	})
	if err != nil {
		return err
	}
	if !res.Connected {
		return fmt.Errorf("google connection was not accepted")
	}
	if res.Token != nil && !res.Token.Expiry.IsZero() {
		slog.Debug("google token received", "expiry", res.Token.Expiry)
	}
	return c.set(true, res.User)
}

// Check re-validates the cached connection against the server. Without a
// local connection it returns false and sends nothing. Transport errors
// leave the cached state untouched.
func (c *Connector) Check(ctx context.Context) (bool, error) {
	if !c.IsConnected() {
		return false, nil
	}

	status, err := c.backend.OAuthStatus(ctx)
	if err != nil {
		slog.Warn("google connection check failed", "err", err)
		return true, err
	}

	if !status.IsConnected {
		slog.Info("google connection revoked on server")
		return false, c.set(false, nil)
	}

	user := status.GoogleUser
	if user == nil {
		user = c.sessions.Snapshot().Google.User
	}
	return true, c.set(true, user)
}

func (c *Connector) set(connected bool, user *model.GoogleUser) error {
	if !connected {
		user = nil
	}
	err := c.sessions.Update(func(st *session.State) {
		st.Google = session.GoogleState{Connected: connected, User: user}
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	listeners := append([]func(model.GoogleConnection){}, c.listeners...)
	c.mu.Unlock()

	conn := model.GoogleConnection{IsConnected: connected, GoogleUser: user}
	for _, fn := range listeners {
		fn(conn)
	}
	return nil
}
