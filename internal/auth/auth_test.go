package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_Check(t *testing.T) {
	a := NewAuthenticator("hunter2", "signing")

	assert.True(t, a.Check("hunter2"))
	assert.False(t, a.Check("hunter3"))
	assert.False(t, a.Check(""))

	unconfigured := NewAuthenticator("", "")
	assert.False(t, unconfigured.Check(""))
}

func TestAuthenticator_IssueAndVerify(t *testing.T) {
	a := NewAuthenticator("hunter2", "signing")

	token, err := a.Issue()
	require.NoError(t, err)
	assert.True(t, a.Verify(token))

	other := NewAuthenticator("hunter2", "different-secret")
	assert.False(t, other.Verify(token))

	assert.False(t, a.Verify(""))
	assert.False(t, a.Verify("not-a-token"))
}

func TestAuthenticator_IssueUnconfigured(t *testing.T) {
	_, err := NewAuthenticator("", "").Issue()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSession_LoginLogout(t *testing.T) {
	storage := NewMemoryStorage()
	s := NewSession(NewAuthenticator("hunter2", ""), storage)

	assert.False(t, s.IsAuthenticated())

	assert.False(t, s.Login("wrong"))
	_, stored := storage.Get(StorageKey)
	assert.False(t, stored)

	assert.True(t, s.Login("hunter2"))
	assert.True(t, s.IsAuthenticated())
	token, ok := s.Token()
	assert.True(t, ok)
	assert.NotEmpty(t, token)

	s.Logout()
	assert.False(t, s.IsAuthenticated())
}

func TestSession_RestoredFromStorage(t *testing.T) {
	a := NewAuthenticator("hunter2", "signing")
	storage := NewMemoryStorage()

	require.True(t, NewSession(a, storage).Login("hunter2"))

	// A new session over the same storage picks the login up.
	assert.True(t, NewSession(a, storage).IsAuthenticated())
}

func TestSession_ForgedValueRejected(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Set(StorageKey, "true")

	s := NewSession(NewAuthenticator("hunter2", "signing"), storage)
	assert.False(t, s.IsAuthenticated())
}

func TestMemoryStorage_ZeroValueUsable(t *testing.T) {
	var m MemoryStorage
	m.Set("k", "v")
	v, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	m.Remove("k")
	_, ok = m.Get("k")
	assert.False(t, ok)
}
