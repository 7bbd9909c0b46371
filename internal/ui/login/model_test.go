package login

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/auth"
)

type fakeAuth struct {
	user, pass string
	err        error
}

func (f *fakeAuth) Login(_ context.Context, username, password string) error {
	f.user, f.pass = username, password
	return f.err
}

func TestLoginSuccessEmitsLoggedIn(t *testing.T) {
	a := &fakeAuth{}
	m := New(a, 80, 24)
	m.Start("")

	msg := m.login("ana", "secret")()
	assert.Equal(t, "ana", a.user)
	assert.Equal(t, "secret", a.pass)

	_, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Equal(t, LoggedInMsg{}, cmd())
}

func TestLoginFailureShowsError(t *testing.T) {
	a := &fakeAuth{err: &api.AuthError{Method: "POST", Path: "/api/auth/login/", Message: "no active account"}}
	m := New(a, 80, 24)
	m.Start("Session expired, please log in again")
	m.fb.username = "ana"

	m, _ = m.Update(m.login("ana", "bad")())

	assert.False(t, m.busy)
	assert.Equal(t, "Invalid credentials", m.errMsg)
	assert.Equal(t, "ana", m.fb.username)
	assert.Empty(t, m.fb.password)
	assert.Contains(t, m.View(), "Session expired")
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Invalid credentials", ErrorText(&api.APIError{Status: 400, Detail: "bad"}))
	assert.Equal(t, "Invalid credentials", ErrorText(&api.APIError{Status: 401}))
	assert.Equal(t, "Username and password are required", ErrorText(auth.ErrEmptyCredentials))
	assert.Equal(t, "server down", ErrorText(&api.APIError{Status: 500, Detail: "server down"}))
	assert.Equal(t, "dial tcp: refused", ErrorText(fmt.Errorf("dial tcp: %w", errors.New("refused"))))
}
