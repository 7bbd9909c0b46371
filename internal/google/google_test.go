package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/api"
	"github.com/nhle/adsdash/internal/credential"
	"github.com/nhle/adsdash/internal/model"
	"github.com/nhle/adsdash/internal/session"
)

type fakeBackend struct {
	authURL     string
	redirect    string
	status      *model.GoogleConnection
	statusErr   error
	statusCalls int
	exchange    api.OAuthExchange
	result      *api.OAuthResult
}

func (f *fakeBackend) OAuthInstall(_ context.Context, redirectURI string) (string, error) {
	f.redirect = redirectURI
	return f.authURL, nil
}

func (f *fakeBackend) OAuthStatus(context.Context) (*model.GoogleConnection, error) {
	f.statusCalls++
	return f.status, f.statusErr
}

func (f *fakeBackend) OAuthToken(_ context.Context, ex api.OAuthExchange) (*api.OAuthResult, error) {
	f.exchange = ex
	if f.result == nil {
		return nil, errors.New("exchange failed")
	}
	return f.result, nil
}

func newConnector(t *testing.T, b *fakeBackend, connected bool) (*Connector, *[]string) {
	t.Helper()
	sessions := session.Open(credential.NewMemory())
	if connected {
		require.NoError(t, sessions.Update(func(st *session.State) {
			st.Google = session.GoogleState{Connected: true, User: &model.GoogleUser{Email: "old@x.io"}}
		}))
	}
	var opened []string
	opener := OpenerFunc(func(u string) error {
		opened = append(opened, u)
		return nil
	})
	return NewConnector(b, sessions, opener, RedirectURI(8765)), &opened
}

func TestConnectOpensBrowser(t *testing.T) {
	b := &fakeBackend{authURL: "https://accounts.example/consent"}
	c, opened := newConnector(t, b, false)

	u, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://accounts.example/consent", u)
	assert.Equal(t, []string{u}, *opened)
	assert.Equal(t, "http://127.0.0.1:8765/oauth/callback", b.redirect)
	assert.False(t, c.IsConnected())
}

func TestConnectWithoutURL(t *testing.T) {
	c, opened := newConnector(t, &fakeBackend{}, false)
	_, err := c.Connect(context.Background())
	assert.ErrorIs(t, err, ErrNoAuthURL)
	assert.Empty(t, *opened)
}

func TestCheckWithoutLocalFlagSendsNothing(t *testing.T) {
	b := &fakeBackend{}
	c, _ := newConnector(t, b, false)
	ok, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, b.statusCalls)
}

func TestCheckServerDisconnectedClearsLocal(t *testing.T) {
	b := &fakeBackend{status: &model.GoogleConnection{IsConnected: false}}
	c, _ := newConnector(t, b, true)

	var seen []model.GoogleConnection
	c.OnChange(func(g model.GoogleConnection) { seen = append(seen, g) })

	ok, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, c.IsConnected())
	assert.Nil(t, c.State().GoogleUser)
	require.Len(t, seen, 1)
	assert.False(t, seen[0].IsConnected)
}

func TestCheckServerConnectedUpdatesUser(t *testing.T) {
	b := &fakeBackend{status: &model.GoogleConnection{
		IsConnected: true,
		GoogleUser:  &model.GoogleUser{Email: "new@x.io"},
	}}
	c, _ := newConnector(t, b, true)

	ok, err := c.Check(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new@x.io", c.State().GoogleUser.Email)
}

func TestCheckTransportErrorKeepsState(t *testing.T) {
	b := &fakeBackend{statusErr: errors.New("network down")}
	c, _ := newConnector(t, b, true)

	ok, err := c.Check(context.Background())
	require.Error(t, err)
	assert.True(t, ok)
	assert.True(t, c.IsConnected())
	assert.Equal(t, "old@x.io", c.State().GoogleUser.Email)
}

func TestExchangeMarksConnected(t *testing.T) {
	b := &fakeBackend{result: &api.OAuthResult{
		Connected: true,
		User:      &model.GoogleUser{Email: "me@x.io"},
	}}
	c, _ := newConnector(t, b, false)

	require.NoError(t, c.Exchange(context.Background(), "code1", "st"))
	assert.Equal(t, "code1", b.exchange.Code)
	assert.Equal(t, "st", b.exchange.State)
	assert.True(t, c.IsConnected())
	assert.Equal(t, "me@x.io", c.State().GoogleUser.Email)
}

func TestCallbackHandler(t *testing.T) {
	b := &fakeBackend{result: &api.OAuthResult{Connected: true}}
	c, _ := newConnector(t, b, false)
	srv := NewCallbackServer(c, 8765)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, CallbackPath+"?code=abc&state=xyz", nil)
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Google account connected")
	assert.NoError(t, <-srv.Results())
	assert.True(t, c.IsConnected())
}

func TestCallbackHandlerDenied(t *testing.T) {
	c, _ := newConnector(t, &fakeBackend{}, false)
	srv := NewCallbackServer(c, 8765)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, CallbackPath+"?error=access_denied", nil)
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Error(t, <-srv.Results())
	assert.False(t, c.IsConnected())
}

func TestRedirectURIDisabled(t *testing.T) {
	assert.Empty(t, RedirectURI(0))
}
