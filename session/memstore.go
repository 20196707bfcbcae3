package session

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore is the process-local fallback used when the backing store is
// unreachable. State lives only for the process lifetime. Expired sessions
// are dropped lazily on access.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates an in-memory store with the given inactivity TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, errors.Wrap(ErrNotFound, id)
	}
	if s.Expired(m.now(), m.ttl) {
		delete(m.sessions, id)
		return nil, errors.Wrap(ErrNotFound, id)
	}

	dup := *s
	return &dup, nil
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dup := *s
	m.sessions[s.ID] = &dup
	m.purgeExpiredLocked()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Len returns the live session count, purging expired entries first.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeExpiredLocked()
	return len(m.sessions)
}

func (m *MemoryStore) purgeExpiredLocked() {
	now := m.now()
	for id, s := range m.sessions {
		if s.Expired(now, m.ttl) {
			delete(m.sessions, id)
		}
	}
}
