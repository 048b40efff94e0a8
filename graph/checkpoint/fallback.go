package checkpoint

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// FallbackStore prefers a durable primary and degrades per-operation to an
// in-process MemoryStore when the primary is unavailable. Each degradation
// is counted and logged; the run itself is never failed by a checkpoint
// backend outage.
//
// The fallback is best effort by nature: state written only to the memory
// store is lost on process exit, which matches the contract that a missing
// checkpoint simply forces a cold start.
type FallbackStore struct {
	primary  Store
	fallback *MemoryStore
	logger   *slog.Logger

	degradations atomic.Int64
}

// NewFallbackStore wraps primary with an in-process fallback.
// A nil logger falls back to slog.Default.
func NewFallbackStore(primary Store, logger *slog.Logger) *FallbackStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackStore{
		primary:  primary,
		fallback: NewMemoryStore(),
		logger:   logger,
	}
}

// Get reads from the primary, falling back to the in-process store when the
// primary errors.
func (s *FallbackStore) Get(ctx context.Context, threadID string) (Record, bool, error) {
	rec, ok, err := s.primary.Get(ctx, threadID)
	if err == nil {
		return rec, ok, nil
	}
	s.degrade("get", threadID, err)
	return s.fallback.Get(ctx, threadID)
}

// Put writes to the primary, falling back to the in-process store when the
// primary errors.
func (s *FallbackStore) Put(ctx context.Context, threadID string, rec Record) error {
	if err := s.primary.Put(ctx, threadID, rec); err != nil {
		s.degrade("put", threadID, err)
		return s.fallback.Put(ctx, threadID, rec)
	}
	// Keep the fallback current so a later degraded Get sees the newest
	// checkpoint rather than a stale one.
	_ = s.fallback.Put(ctx, threadID, rec)
	return nil
}

// AppendPendingWrite appends to the primary, degrading to the in-process
// store on error.
func (s *FallbackStore) AppendPendingWrite(ctx context.Context, threadID string, w PendingWrite) error {
	if err := s.primary.AppendPendingWrite(ctx, threadID, w); err != nil {
		s.degrade("append_pending_write", threadID, err)
		return s.fallback.AppendPendingWrite(ctx, threadID, w)
	}
	return nil
}

// Degradations reports how many operations fell back to the in-process
// store since creation.
func (s *FallbackStore) Degradations() int64 {
	return s.degradations.Load()
}

func (s *FallbackStore) degrade(op, threadID string, err error) {
	s.degradations.Add(1)
	s.logger.Warn("checkpoint primary unavailable, using in-process store",
		"op", op, "thread", threadID, "error", err)
}
