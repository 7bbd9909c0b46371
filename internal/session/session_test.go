package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/adsdash/internal/credential"
	"github.com/nhle/adsdash/internal/model"
)

func TestOpenEmptyBackend(t *testing.T) {
	s := Open(credential.NewMemory())
	st := s.Snapshot()
	assert.Equal(t, Version, st.Version)
	assert.Empty(t, st.Auth.AccessToken)
	assert.True(t, st.Sidebar.Open)
}

func TestUpdatePersists(t *testing.T) {
	vault := credential.NewMemory()
	s := Open(vault)
	require.NoError(t, s.Update(func(st *State) {
		st.Auth.AccessToken = "a1"
		st.Auth.RefreshToken = "r1"
		st.Google = GoogleState{Connected: true, User: &model.GoogleUser{Email: "x@y.z"}}
	}))

	reopened := Open(vault)
	assert.Equal(t, "a1", reopened.AccessToken())
	assert.Equal(t, "r1", reopened.RefreshToken())
	assert.True(t, reopened.Snapshot().Google.Connected)
	assert.Equal(t, "x@y.z", reopened.Snapshot().Google.User.Email)
}

func TestClearKeepsSidebar(t *testing.T) {
	vault := credential.NewMemory()
	s := Open(vault)
	require.NoError(t, s.Update(func(st *State) {
		st.Auth.AccessToken = "a"
		st.Sidebar.Collapsed = true
	}))
	require.NoError(t, s.Clear())

	reopened := Open(vault)
	assert.Empty(t, reopened.AccessToken())
	assert.True(t, reopened.Snapshot().Sidebar.Collapsed)
}

func TestDecodeOtherVersionIsEmpty(t *testing.T) {
	st, err := Decode([]byte(`{"version":99,"auth":{"access_token":"old"}}`))
	require.NoError(t, err)
	assert.Empty(t, st.Auth.AccessToken)
}

func TestDecodeGarbage(t *testing.T) {
	vault := credential.NewMemory()
	require.NoError(t, vault.Set(itemKey, []byte("{not json")))
	s := Open(vault)
	assert.Empty(t, s.AccessToken())
}

func TestParseUser(t *testing.T) {
	a := AuthState{User: json.RawMessage(`{"id":4,"username":"ana"}`)}
	u := a.ParseUser()
	require.NotNil(t, u)
	assert.Equal(t, "ana", u.Username)

	assert.Nil(t, AuthState{User: json.RawMessage(`"oops"`)}.ParseUser())
	assert.Nil(t, AuthState{}.ParseUser())
}

func TestSidebarToggles(t *testing.T) {
	s := Open(credential.NewMemory())
	require.NoError(t, s.ToggleSidebar())
	require.NoError(t, s.ToggleSidebarCollapse())
	st := s.Snapshot()
	assert.False(t, st.Sidebar.Open)
	assert.True(t, st.Sidebar.Collapsed)
}
