package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a volatile store for tests and single-process deployments.
// It implements SessionStore, TurnStore, and SummaryStore.
type Memory struct {
	mu        sync.RWMutex
	sessions  map[string]Session
	turns     map[string][]Turn
	summaries map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		sessions:  make(map[string]Session),
		turns:     make(map[string][]Turn),
		summaries: make(map[string]string),
	}
}

// Create implements SessionStore.
func (m *Memory) Create(ctx context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	m.sessions[s.ID] = s
	return nil
}

// Get implements SessionStore.
func (m *Memory) Get(ctx context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

// ListByUser implements SessionStore.
func (m *Memory) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// UpdateTitle implements SessionStore.
func (m *Memory) UpdateTitle(ctx context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Title = title
	s.UpdatedAt = time.Now().UTC()
	m.sessions[id] = s
	return nil
}

// Delete implements SessionStore. Turns and the summary go with the session.
func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.turns, id)
	delete(m.summaries, id)
	return nil
}

// Append implements TurnStore.
func (m *Memory) Append(ctx context.Context, t Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.turns[t.SessionID] = append(m.turns[t.SessionID], t)
	return nil
}

// Recent implements TurnStore, returning newest first.
func (m *Memory) Recent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := m.turns[sessionID]
	if n > len(all) {
		n = len(all)
	}
	out := make([]Turn, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// History implements TurnStore, returning chronological order.
func (m *Memory) History(ctx context.Context, sessionID string) ([]Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Turn(nil), m.turns[sessionID]...), nil
}

// Summary implements SummaryStore.
func (m *Memory) Summary(ctx context.Context, sessionID string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaries[sessionID], nil
}

// Upsert implements SummaryStore.
func (m *Memory) Upsert(ctx context.Context, sessionID, summary string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[sessionID] = summary
	return nil
}
