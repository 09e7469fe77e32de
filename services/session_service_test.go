package services

import (
	"sync"
	"testing"

	"github.com/CairnApp/shellsync/types"
	"github.com/stretchr/testify/assert"
)

func TestSessionManagerLifecycle(t *testing.T) {
	m := NewSessionManager()
	assert.False(t, m.IsAuthenticated())
	assert.Empty(t, m.UserID())

	m.Set(types.Session{AccessToken: "abc.def.ghi", RefreshToken: "r1", UserID: "user-1"})
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, "user-1", m.UserID())

	m.Clear()
	assert.Equal(t, types.Session{}, m.Current())
}

func TestSetTokensKeepsRefreshWhenEmpty(t *testing.T) {
	m := NewSessionManager()
	m.Set(types.Session{AccessToken: "old", RefreshToken: "r1", UserID: "user-1"})

	m.SetTokens("new", "")

	session := m.Current()
	assert.Equal(t, "new", session.AccessToken)
	assert.Equal(t, "r1", session.RefreshToken)
	assert.Equal(t, "user-1", session.UserID)
}

func TestSessionManagerConcurrentWrites(t *testing.T) {
	m := NewSessionManager()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.SetTokens("access", "refresh")
		}()
		go func() {
			defer wg.Done()
			_ = m.Current()
		}()
	}
	wg.Wait()

	// The token pair must never be observed half-written.
	session := m.Current()
	assert.Equal(t, "access", session.AccessToken)
	assert.Equal(t, "refresh", session.RefreshToken)
}
