package checkpoint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// failingStore simulates an unreachable primary backend.
type failingStore struct {
	err error
}

func (f *failingStore) Get(ctx context.Context, threadID string) (Record, bool, error) {
	return Record{}, false, f.err
}

func (f *failingStore) Put(ctx context.Context, threadID string, rec Record) error {
	return f.err
}

func (f *failingStore) AppendPendingWrite(ctx context.Context, threadID string, w PendingWrite) error {
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFallbackStoreDegrades(t *testing.T) {
	primary := &failingStore{err: errors.New("connection refused")}
	store := NewFallbackStore(primary, quietLogger())
	ctx := context.Background()

	rec := Record{Payload: []byte(`{"x":1}`), Encoding: EncodingJSON}
	if err := store.Put(ctx, "t1", rec); err != nil {
		t.Fatalf("put should degrade, not fail: %v", err)
	}

	got, ok, err := store.Get(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("get after degraded put: ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != string(rec.Payload) {
		t.Errorf("payload = %s, want %s", got.Payload, rec.Payload)
	}

	if err := store.AppendPendingWrite(ctx, "t1", PendingWrite{Node: "a"}); err != nil {
		t.Fatalf("append should degrade, not fail: %v", err)
	}

	if n := store.Degradations(); n != 3 {
		t.Errorf("degradations = %d, want 3", n)
	}
}

func TestFallbackStoreMirrorsHealthyPrimary(t *testing.T) {
	primary := NewMemoryStore()
	store := NewFallbackStore(primary, quietLogger())
	ctx := context.Background()

	rec := Record{Payload: []byte(`{"x":1}`), Encoding: EncodingJSON}
	if err := store.Put(ctx, "t1", rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if n := store.Degradations(); n != 0 {
		t.Fatalf("degradations = %d, want 0", n)
	}

	// The in-process copy stays current, so a later primary outage still
	// serves the newest checkpoint.
	got, ok, err := store.fallback.Get(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("fallback copy: ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != string(rec.Payload) {
		t.Errorf("fallback payload = %s, want %s", got.Payload, rec.Payload)
	}
}
