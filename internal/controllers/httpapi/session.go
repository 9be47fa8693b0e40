package httpapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Role distinguishes a logged-in administrator, who may write overrides and
// change simulation parameters, from an anonymous viewer, who may only read.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleViewer Role = "viewer"
)

const sessionTTL = 24 * time.Hour

// session is one logged-in principal: a role and when the session expires.
type session struct {
	role      Role
	expiresAt time.Time
}

// sessionStore holds every live session cookie's token, in memory only.
// Tokens are opaque google/uuid values; nothing about a session survives a
// process restart, mirroring the rest of BASim's no-persistence model.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]session)}
}

// create mints a new session token for role and returns it.
func (s *sessionStore) create(role Role) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = session{role: role, expiresAt: time.Now().Add(sessionTTL)}
	s.mu.Unlock()
	return token
}

// lookup returns the role for token, if token names a live, unexpired
// session.
func (s *sessionStore) lookup(token string) (Role, bool) {
	if token == "" {
		return "", false
	}
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if time.Now().After(sess.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return "", false
	}
	return sess.role, true
}

// delete invalidates token, e.g. on logout.
func (s *sessionStore) delete(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}
