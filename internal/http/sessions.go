package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"duit/internal/core"
)

const sessionTTL = 12 * time.Hour

// sessionStore maps opaque bearer tokens to logged-in users.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]session
}

type session struct {
	user      core.User
	expiresAt time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]session)}
}

func (s *sessionStore) create(user core.User) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{
		user:      user,
		expiresAt: time.Now().Add(sessionTTL),
	}
	return token, nil
}

func (s *sessionStore) lookup(token string) (core.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[token]
	if !ok {
		return core.User{}, false
	}
	if time.Now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return core.User{}, false
	}
	return sess.user, true
}

func (s *sessionStore) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// CleanExpired removes expired sessions, implementing cache.Cleaner.
func (s *sessionStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}
