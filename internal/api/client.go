package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TokenStore is the durable home of the session tokens.
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SetAccessToken(token string) error
	Clear() error
}

// Observer receives request and refresh outcomes, e.g. for metrics.
type Observer interface {
	ObserveRequest(method, path string, status int, elapsed time.Duration)
	ObserveRefresh(ok bool)
}

// Client is a thin HTTP client for the dashboard REST API.
// It handles Bearer token authentication, a single refresh-and-replay on
// HTTP 401, JSON marshaling, and retry with exponential backoff on 429.
type Client struct {
	baseURL    string
	tokens     TokenStore
	httpClient *http.Client
	maxRetries int
	observer   Observer

	// onExpired is called after a failed refresh wiped the session.
	onExpired func(error)

	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets how many times a 429 response is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithObserver attaches a request observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithSessionExpired registers the hook fired when a token refresh fails.
func WithSessionExpired(fn func(error)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// NewClient creates a client for the API rooted at baseURL
// (e.g. https://api.example.com/).
func NewClient(baseURL string, tokens TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSessionExpiredHook replaces the session-expired hook.
func (c *Client) SetSessionExpiredHook(fn func(error)) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	c.onExpired = fn
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get performs an authenticated GET and unmarshals the JSON response.
func (c *Client) Get(ctx context.Context, path string, result interface{}) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, result interface{}) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// response is a fully read HTTP response.
type response struct {
	status int
	body   []byte
}

// do sends an authenticated request. A 401 triggers one token refresh
// followed by exactly one replay; the caller never sees that first 401.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	sentWith := c.tokens.AccessToken()
	resp, err := c.send(ctx, method, path, body, sentWith)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized {
		token, err := c.refresh(ctx, sentWith)
		if err != nil {
			return err
		}
		resp, err = c.send(ctx, method, path, body, token)
		if err != nil {
			return err
		}
		if resp.status == http.StatusUnauthorized {
			return &AuthError{
				Method:  method,
				Path:    path,
				Message: "request rejected after token refresh",
			}
		}
	}

	return decode(resp, method, path, result)
}

// doPublic sends a request without a bearer token and without refresh.
func (c *Client) doPublic(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	resp, err := c.send(ctx, method, path, body, "")
	if err != nil {
		return err
	}
	if resp.status == http.StatusUnauthorized {
		return &AuthError{Method: method, Path: path, Message: errorDetail(resp.body)}
	}
	return decode(resp, method, path, result)
}

// refresh exchanges the refresh token for a new access token. If another
// request already refreshed since staleToken was sent, the current token is
// reused. On failure the session is cleared and ErrSessionExpired returned.
func (c *Client) refresh(ctx context.Context, staleToken string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if current := c.tokens.AccessToken(); current != "" && current != staleToken {
		return current, nil
	}

	access, err := c.exchangeRefreshToken(ctx)
	if c.observer != nil {
		c.observer.ObserveRefresh(err == nil)
	}
	if err == nil {
		err = c.tokens.SetAccessToken(access)
	}
	if err != nil {
		if clearErr := c.tokens.Clear(); clearErr != nil {
			err = errors.Join(err, clearErr)
		}
		expired := fmt.Errorf("%w: %w", ErrSessionExpired, err)
		if c.onExpired != nil {
			c.onExpired(expired)
		}
		return "", expired
	}
	return access, nil
}

func (c *Client) exchangeRefreshToken(ctx context.Context) (string, error) {
	refreshToken := c.tokens.RefreshToken()
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	var out refreshResponse
	err := c.doPublic(ctx, http.MethodPost, refreshPath, refreshRequest{Refresh: refreshToken}, &out)
	if err != nil {
		return "", fmt.Errorf("refreshing access token: %w", err)
	}
	if out.Access == "" {
		return "", fmt.Errorf("refreshing access token: empty access token")
	}
	return out.Access, nil
}

// send builds and executes one request, retrying on 429 with backoff.
func (c *Client) send(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	token string,
) (*response, error) {
	url := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			if c.observer != nil {
				c.observer.ObserveRequest(method, path, 0, time.Since(start))
			}
			return nil, fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if c.observer != nil {
			c.observer.ObserveRequest(method, path, resp.StatusCode, time.Since(start))
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		return &response{status: resp.StatusCode, body: respBody}, nil
	}
}

// decode maps non-2xx responses to APIError and unmarshals the body.
func decode(resp *response, method, path string, result interface{}) error {
	if resp.status < 200 || resp.status >= 300 {
		return &APIError{
			Status: resp.status,
			Method: method,
			Path:   path,
			Detail: errorDetail(resp.body),
			Body:   string(resp.body),
		}
	}

	// No content to parse (e.g. 204).
	if result == nil || resp.status == http.StatusNoContent || len(resp.body) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.body, result); err != nil {
		return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
	}
	return nil
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
