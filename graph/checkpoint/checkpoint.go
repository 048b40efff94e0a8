// Package checkpoint persists run snapshots keyed by thread ID.
package checkpoint

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Payload encodings recorded on a checkpoint so readers can reverse the
// transport representation.
const (
	// EncodingJSON marks a payload stored as UTF-8 JSON text.
	EncodingJSON = "json"
	// EncodingHex marks a payload stored hex-encoded for transports that
	// cannot carry raw bytes safely.
	EncodingHex = "hex"
)

// Record is one persisted checkpoint. Payload holds the serialized run
// snapshot; Encoding tags how the bytes were stored so they can be decoded
// on the way back out.
type Record struct {
	Payload  []byte         `json:"payload"`
	Encoding string         `json:"encoding"`
	Metadata map[string]any `json:"metadata,omitempty"`
	ParentID string         `json:"parent_id,omitempty"`
	SavedAt  time.Time      `json:"saved_at"`
}

// PendingWrite is a best-effort record of a node's delta, appended between
// full checkpoints for post-mortem inspection.
type PendingWrite struct {
	Node  string    `json:"node"`
	Value []byte    `json:"value"`
	At    time.Time `json:"at,omitempty"`
}

// Store persists checkpoints keyed by thread ID.
//
// Get returns ok=false both when no checkpoint exists and when a stored
// record cannot be decoded; a corrupt checkpoint must never fail a run, it
// just forces a cold start.
//
// AppendPendingWrite is best effort: implementations may drop writes under
// pressure and callers must tolerate errors.
type Store interface {
	Get(ctx context.Context, threadID string) (Record, bool, error)
	Put(ctx context.Context, threadID string, rec Record) error
	AppendPendingWrite(ctx context.Context, threadID string, w PendingWrite) error
}

// SanitizeMetadata returns a copy of meta safe to serialize as JSON.
// Byte slices are hex-encoded with a companion "<key>_encoding" entry, and
// values that do not survive a JSON round trip are dropped rather than
// failing the checkpoint write.
func SanitizeMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}
	out := make(map[string]any, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case []byte:
			out[key] = hex.EncodeToString(v)
			out[key+"_encoding"] = EncodingHex
		default:
			if _, err := json.Marshal(v); err != nil {
				continue
			}
			out[key] = v
		}
	}
	return out
}
