package checkpoint

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store. It keeps the latest checkpoint per
// thread plus the trailing pending writes. Suitable for tests, development,
// and as the degradation target of FallbackStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	writes  map[string][]PendingWrite
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		writes:  make(map[string][]PendingWrite),
	}
}

// Get returns the latest checkpoint for the thread.
func (s *MemoryStore) Get(ctx context.Context, threadID string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[threadID]
	if !ok {
		return Record{}, false, nil
	}
	// Copy the payload so callers cannot mutate the stored record.
	out := rec
	out.Payload = append([]byte(nil), rec.Payload...)
	return out, true, nil
}

// Put replaces the checkpoint for the thread and clears its pending writes,
// which are only meaningful between checkpoints.
func (s *MemoryStore) Put(ctx context.Context, threadID string, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Payload = append([]byte(nil), rec.Payload...)
	rec.Metadata = SanitizeMetadata(rec.Metadata)
	s.records[threadID] = rec
	delete(s.writes, threadID)
	return nil
}

// AppendPendingWrite records a node delta for the thread.
func (s *MemoryStore) AppendPendingWrite(ctx context.Context, threadID string, w PendingWrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if w.At.IsZero() {
		w.At = time.Now().UTC()
	}
	w.Value = append([]byte(nil), w.Value...)
	s.writes[threadID] = append(s.writes[threadID], w)
	return nil
}

// PendingWrites returns the writes recorded since the last Put, in order.
func (s *MemoryStore) PendingWrites(threadID string) []PendingWrite {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PendingWrite, len(s.writes[threadID]))
	copy(out, s.writes[threadID])
	return out
}

// Delete removes the checkpoint and pending writes for a thread.
func (s *MemoryStore) Delete(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, threadID)
	delete(s.writes, threadID)
}
