package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Manager is the only entry point to conversation state. It writes through
// to a primary store when one is configured and degrades transparently to
// an in-process fallback on any primary failure; degradation is logged,
// never surfaced.
type Manager struct {
	primary    Store
	fallback   *MemoryStore
	maxHistory int
	logger     *slog.Logger
}

// NewManager builds a session manager. primary may be nil, in which case
// all state is process-local.
func NewManager(primary Store, ttl time.Duration, maxHistory int, logger *slog.Logger) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		primary:    primary,
		fallback:   NewMemoryStore(ttl),
		maxHistory: maxHistory,
		logger:     logger,
	}
}

// GetOrCreate loads the session for id, creating a fresh one when id is
// empty or unknown. It never fails: worst case is a brand-new session in
// the fallback store.
func (m *Manager) GetOrCreate(ctx context.Context, id string) *Session {
	if id == "" {
		return m.newSession()
	}

	if s, err := m.load(ctx, id); err == nil {
		return s
	} else if !errors.Is(err, ErrNotFound) {
		m.logger.Warn("session: load failed, starting fresh", "session_id", id, "error", err)
	}

	now := time.Now()
	return &Session{ID: id, CreatedAt: now, LastActivity: now}
}

// RecordExchange appends the user query and assistant answer as two turns
// and persists the session.
func (m *Manager) RecordExchange(ctx context.Context, s *Session, query, answer string) {
	now := time.Now()
	s.AppendTurn(Turn{Role: "user", Content: query, Timestamp: now}, m.maxHistory)
	s.AppendTurn(Turn{Role: "assistant", Content: answer, Timestamp: now}, m.maxHistory)
	m.save(ctx, s)
}

// Save persists the session through the primary store, falling back to
// memory on failure.
func (m *Manager) Save(ctx context.Context, s *Session) {
	m.save(ctx, s)
}

// Get returns the stored session for id.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.load(ctx, id)
}

// Delete removes the session from both stores.
func (m *Manager) Delete(ctx context.Context, id string) {
	if m.primary != nil {
		if err := m.primary.Delete(ctx, id); err != nil {
			m.logger.Warn("session: primary delete failed", "session_id", id, "error", err)
		}
	}
	_ = m.fallback.Delete(ctx, id)
}

func (m *Manager) newSession() *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}
}

func (m *Manager) load(ctx context.Context, id string) (*Session, error) {
	if m.primary != nil {
		s, err := m.primary.Get(ctx, id)
		if err == nil {
			return s, nil
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		m.logger.Warn("session: primary store unavailable, using fallback", "error", err)
	}
	return m.fallback.Get(ctx, id)
}

func (m *Manager) save(ctx context.Context, s *Session) {
	if m.primary != nil {
		err := m.primary.Put(ctx, s)
		if err == nil {
			return
		}
		m.logger.Warn("session: primary store write failed, using fallback", "session_id", s.ID, "error", err)
	}
	if err := m.fallback.Put(ctx, s); err != nil {
		m.logger.Error("session: fallback write failed", "session_id", s.ID, "error", err)
	}
}
