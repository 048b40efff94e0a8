package checkpoint

import (
	"context"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("missing thread: ok=%v err=%v, want false, nil", ok, err)
	}

	rec := Record{
		Payload:  []byte(`{"status":"completed"}`),
		Encoding: EncodingJSON,
		Metadata: map[string]any{"status": "completed"},
	}
	if err := store.Put(ctx, "t1", rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if string(got.Payload) != string(rec.Payload) {
		t.Errorf("payload = %s, want %s", got.Payload, rec.Payload)
	}
	if got.Encoding != EncodingJSON {
		t.Errorf("encoding = %s, want %s", got.Encoding, EncodingJSON)
	}

	// Mutating the returned payload must not corrupt the stored record.
	got.Payload[0] = 'X'
	again, _, _ := store.Get(ctx, "t1")
	if string(again.Payload) != string(rec.Payload) {
		t.Error("returned payload aliases the stored record")
	}
}

func TestMemoryStorePendingWrites(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.AppendPendingWrite(ctx, "t1", PendingWrite{Node: "a", Value: []byte(`{}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.AppendPendingWrite(ctx, "t1", PendingWrite{Node: "b", Value: []byte(`{}`)}); err != nil {
		t.Fatalf("append: %v", err)
	}

	writes := store.PendingWrites("t1")
	if len(writes) != 2 || writes[0].Node != "a" || writes[1].Node != "b" {
		t.Fatalf("writes = %+v, want a then b", writes)
	}
	if writes[0].At.IsZero() {
		t.Error("append should stamp the write time")
	}

	// A full checkpoint supersedes the deltas recorded before it.
	if err := store.Put(ctx, "t1", Record{Payload: []byte(`{}`), Encoding: EncodingJSON}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if writes := store.PendingWrites("t1"); len(writes) != 0 {
		t.Errorf("pending writes after put = %d, want 0", len(writes))
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Put(ctx, "t1", Record{Payload: []byte(`{}`), Encoding: EncodingJSON})
	store.Delete("t1")

	if _, ok, _ := store.Get(ctx, "t1"); ok {
		t.Error("record should be gone after delete")
	}
}

func TestSanitizeMetadata(t *testing.T) {
	meta := map[string]any{
		"status": "completed",
		"raw":    []byte{0x01, 0xff},
		"bad":    func() {},
	}

	out := SanitizeMetadata(meta)

	if out["status"] != "completed" {
		t.Errorf("status = %v, want completed", out["status"])
	}
	if out["raw"] != "01ff" {
		t.Errorf("raw = %v, want hex 01ff", out["raw"])
	}
	if out["raw_encoding"] != EncodingHex {
		t.Errorf("raw_encoding = %v, want %s", out["raw_encoding"], EncodingHex)
	}
	if _, ok := out["bad"]; ok {
		t.Error("non-serializable value should be dropped")
	}

	if SanitizeMetadata(nil) != nil {
		t.Error("nil metadata should stay nil")
	}
}
