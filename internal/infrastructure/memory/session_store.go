package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/prostech/salesbi-auth/internal/core/domain"
)

// SessionStore keeps session records in a map. ttl is ignored: expiry is
// decided by the session manager when the session is next used.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]map[string]string)}
}

func (s *SessionStore) Load(_ context.Context, id string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return maps.Clone(values), nil
}

func (s *SessionStore) Save(_ context.Context, id string, values map[string]string, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = maps.Clone(values)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
