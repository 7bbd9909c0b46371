package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrSessionExpired is returned when a 401 could not be recovered by a
	// token refresh. The session has been cleared by the time it is seen.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoRefreshToken means there was nothing to refresh with.
	ErrNoRefreshToken = errors.New("no refresh token")
)

// AuthError indicates the server rejected the credentials of a request.
type AuthError struct {
	Method  string
	Path    string
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s %s): %s", e.Method, e.Path, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an
// AuthError or a session expiry.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) || errors.Is(err, ErrSessionExpired)
}

// APIError is a non-2xx response other than an unrecovered 401.
type APIError struct {
	Status int
	Method string
	Path   string

	// Detail is the server's human-readable message, if any.
	Detail string
	Body   string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.Path, e.Status)
}

// StatusCode returns the HTTP status of err if it is an APIError, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns a short user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return "Session expired, please log in again"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	var authErr *AuthError
	if errors.As(err, &authErr) && authErr.Message != "" {
		return authErr.Message
	}
	return err.Error()
}

// errorDetail extracts a message from a REST error body. It understands
// {"detail": "..."}, {"error": "..."}, {"message": "..."} and field error
// maps like {"name": ["required"]}.
func errorDetail(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return strings.TrimSpace(truncate(string(body), 200))
	}

	for _, key := range []string{"detail", "error", "message"} {
		if raw, ok := obj[key]; ok {
			var s string
			if json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		var msgs []string
		if json.Unmarshal(obj[k], &msgs) == nil && len(msgs) > 0 {
			parts = append(parts, k+": "+strings.Join(msgs, ", "))
			continue
		}
		var s string
		if json.Unmarshal(obj[k], &s) == nil && s != "" {
			parts = append(parts, k+": "+s)
		}
	}
	return strings.Join(parts, "; ")
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
