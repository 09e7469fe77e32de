package services

import (
	"sync"

	"github.com/CairnApp/shellsync/types"
)

// SessionManager owns the in-memory session state of the shell. All mutation
// goes through it so concurrent bridge messages and bootstrap cannot
// interleave partial writes of the token pair; last write wins.
type SessionManager struct {
	mu      sync.RWMutex
	session types.Session
}

// NewSessionManager creates an empty (unauthenticated) session manager.
func NewSessionManager() *SessionManager {
	return &SessionManager{}
}

// Current returns a copy of the current session.
func (m *SessionManager) Current() types.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// Set replaces the whole session.
func (m *SessionManager) Set(session types.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = session
}

// SetTokens updates the token pair atomically, keeping user identity intact.
// An empty refresh token leaves the existing one in place.
func (m *SessionManager) SetTokens(accessToken, refreshToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.AccessToken = accessToken
	if refreshToken != "" {
		m.session.RefreshToken = refreshToken
	}
}

// SetIdentity updates the user identity fields.
func (m *SessionManager) SetIdentity(userID string, profile *types.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session.UserID = userID
	m.session.Profile = profile
}

// Clear resets the session to unauthenticated.
func (m *SessionManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = types.Session{}
}

// UserID returns the current session's user ID, empty when unauthenticated.
func (m *SessionManager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.UserID
}

// IsAuthenticated reports whether a session with an access token exists.
func (m *SessionManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.IsAuthenticated()
}
