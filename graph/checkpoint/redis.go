package checkpoint

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "checkpoint:"
	// maxPendingWrites bounds the per-thread write trail so an abandoned
	// thread cannot grow without limit.
	maxPendingWrites = 64
)

// RedisStore persists checkpoints in Redis under "checkpoint:<thread>".
//
// Payloads are hex-encoded before storage and tagged with EncodingHex, so a
// record written by an older or newer reader can always tell how to decode
// the bytes. A stored document that fails to decode is reported as "no
// checkpoint" rather than as an error.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// redisDocument is the JSON document stored at the checkpoint key.
type redisDocument struct {
	Payload  string         `json:"payload"`
	Encoding string         `json:"encoding"`
	Metadata map[string]any `json:"metadata,omitempty"`
	ParentID string         `json:"parent_id,omitempty"`
	SavedAt  time.Time      `json:"saved_at"`
}

// NewRedisStore creates a Store backed by the given Redis client.
// A zero ttl keeps checkpoints until explicitly deleted.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Ping verifies connectivity. Callers typically wrap a RedisStore in a
// FallbackStore instead of failing startup on an unreachable server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns the latest checkpoint for the thread.
func (s *RedisStore) Get(ctx context.Context, threadID string) (Record, bool, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+threadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("redis get: %w", err)
	}

	var doc redisDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, false, nil
	}
	payload, err := decodePayload(doc.Payload, doc.Encoding)
	if err != nil {
		return Record{}, false, nil
	}

	return Record{
		Payload:  payload,
		Encoding: EncodingJSON,
		Metadata: doc.Metadata,
		ParentID: doc.ParentID,
		SavedAt:  doc.SavedAt,
	}, true, nil
}

// Put stores the checkpoint and resets the thread's pending-write trail.
func (s *RedisStore) Put(ctx context.Context, threadID string, rec Record) error {
	doc := redisDocument{
		Payload:  hex.EncodeToString(rec.Payload),
		Encoding: EncodingHex,
		Metadata: SanitizeMetadata(rec.Metadata),
		ParentID: rec.ParentID,
		SavedAt:  rec.SavedAt,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, redisKeyPrefix+threadID, data, s.ttl)
	pipe.Del(ctx, writesKey(threadID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// AppendPendingWrite pushes a write onto the thread's trail, trimming it to
// the most recent maxPendingWrites entries.
func (s *RedisStore) AppendPendingWrite(ctx context.Context, threadID string, w PendingWrite) error {
	if w.At.IsZero() {
		w.At = time.Now().UTC()
	}
	entry, err := json.Marshal(struct {
		Node  string    `json:"node"`
		Value string    `json:"value"`
		At    time.Time `json:"at"`
	}{Node: w.Node, Value: hex.EncodeToString(w.Value), At: w.At})
	if err != nil {
		return fmt.Errorf("marshal pending write: %w", err)
	}

	key := writesKey(threadID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, entry)
	pipe.LTrim(ctx, key, -maxPendingWrites, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append: %w", err)
	}
	return nil
}

// Delete removes the checkpoint and write trail for a thread.
func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	return s.client.Del(ctx, redisKeyPrefix+threadID, writesKey(threadID)).Err()
}

func writesKey(threadID string) string {
	return redisKeyPrefix + threadID + ":writes"
}

func decodePayload(payload, encoding string) ([]byte, error) {
	switch encoding {
	case EncodingHex:
		return hex.DecodeString(payload)
	case EncodingJSON, "":
		return []byte(payload), nil
	default:
		return nil, fmt.Errorf("unknown payload encoding: %s", encoding)
	}
}
