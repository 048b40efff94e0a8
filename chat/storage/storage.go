// Package storage persists sessions, conversation turns, and rolling
// summaries. Implementations exist for an in-memory map, SQLite, and MySQL.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Session is the metadata record for one conversation.
type Session struct {
	ID        string
	UserID    string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Turn is one persisted user/assistant exchange.
type Turn struct {
	ID        string
	SessionID string
	User      string
	Agent     string
	CreatedAt time.Time
}

// SessionStore manages session metadata.
type SessionStore interface {
	// Create inserts a session record.
	Create(ctx context.Context, s Session) error

	// Get returns the session or ErrNotFound.
	Get(ctx context.Context, id string) (Session, error)

	// ListByUser returns the user's sessions, most recently updated first.
	ListByUser(ctx context.Context, userID string) ([]Session, error)

	// UpdateTitle sets the title and touches the updated_at timestamp.
	UpdateTitle(ctx context.Context, id, title string) error

	// Delete removes the session together with its turns and summary.
	Delete(ctx context.Context, id string) error
}

// TurnStore manages durable turn history.
type TurnStore interface {
	// Append inserts a completed turn.
	Append(ctx context.Context, t Turn) error

	// Recent returns up to n turns for the session, newest first.
	Recent(ctx context.Context, sessionID string, n int) ([]Turn, error)

	// History returns every turn for the session in chronological order,
	// for rebuilding the full message timeline.
	History(ctx context.Context, sessionID string) ([]Turn, error)
}

// SummaryStore manages the per-session rolling summary.
type SummaryStore interface {
	// Summary returns the rolling summary, or "" when none has been
	// written yet.
	Summary(ctx context.Context, sessionID string) (string, error)

	// Upsert replaces the summary for the session.
	Upsert(ctx context.Context, sessionID, summary string) error
}
