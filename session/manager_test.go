package session

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore simulates an unreachable backing store.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (*Session, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Put(context.Context, *Session) error {
	return errors.New("connection refused")
}

func (failingStore) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

func TestSessionHistoryBounded(t *testing.T) {
	s := &Session{ID: "s1"}
	for i := 0; i < 60; i++ {
		s.AppendTurn(Turn{Role: "user", Content: "q", Timestamp: time.Now()}, 50)
	}
	assert.Len(t, s.History, 50)
}

func TestSessionMergeAttributes(t *testing.T) {
	s := &Session{ID: "s1"}
	s.MergeAttributes(map[string]any{"location": "Pune", "crop": "wheat"})
	s.MergeAttributes(map[string]any{"crop": "rice", "size": 2.5})

	assert.Equal(t, "Pune", s.FarmAttributes["location"])
	assert.Equal(t, "rice", s.FarmAttributes["crop"])
	assert.Equal(t, 2.5, s.FarmAttributes["size"])
}

func TestSessionTrackWorkflowDedupes(t *testing.T) {
	s := &Session{ID: "s1"}
	s.TrackWorkflow("wf1")
	s.TrackWorkflow("wf1")
	s.TrackWorkflow("wf2")
	assert.Equal(t, []string{"wf1", "wf2"}, s.WorkflowIDs)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(context.Background(), &Session{ID: "s1", LastActivity: now}))

	_, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, store.Len())
}

func TestMemoryStoreReturnsCopy(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	orig := &Session{ID: "s1", LastActivity: time.Now()}
	require.NoError(t, store.Put(context.Background(), orig))

	got, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	got.ID = "mutated"

	again, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", again.ID)
}

func TestManagerCreatesSessionWithoutID(t *testing.T) {
	m := NewManager(nil, time.Hour, 50, slog.Default())
	s := m.GetOrCreate(context.Background(), "")
	assert.NotEmpty(t, s.ID)
	assert.Empty(t, s.History)
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager(nil, time.Hour, 50, slog.Default())
	ctx := context.Background()

	s := m.GetOrCreate(ctx, "farmer-1")
	m.RecordExchange(ctx, s, "what about wheat?", "wheat grows well here")

	loaded := m.GetOrCreate(ctx, "farmer-1")
	require.Len(t, loaded.History, 2)
	assert.Equal(t, "user", loaded.History[0].Role)
	assert.Equal(t, "assistant", loaded.History[1].Role)
}

func TestManagerDegradesToFallback(t *testing.T) {
	m := NewManager(failingStore{}, time.Hour, 50, slog.Default())
	ctx := context.Background()

	s := m.GetOrCreate(ctx, "farmer-2")
	m.RecordExchange(ctx, s, "hello", "hi there")

	loaded := m.GetOrCreate(ctx, "farmer-2")
	assert.Len(t, loaded.History, 2)
}
