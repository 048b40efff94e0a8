package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DB implements SessionStore, TurnStore, and SummaryStore over database/sql.
// Use OpenSQLite or OpenMySQL to construct one; the dialects share every
// statement except schema creation and the summary upsert.
type DB struct {
	db            *sql.DB
	upsertSummary string
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.db.Close()
}

// Create implements SessionStore.
func (d *DB) Create(ctx context.Context, s Session) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.Title, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Get implements SessionStore.
func (d *DB) Get(ctx context.Context, id string) (Session, error) {
	var s Session
	err := d.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM sessions WHERE id = ?`, id).
		Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListByUser implements SessionStore.
func (d *DB) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at, updated_at FROM sessions
		 WHERE user_id = ? ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateTitle implements SessionStore.
func (d *DB) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements SessionStore. The session's turns and summary are
// removed in the same transaction.
func (d *DB) Delete(ctx context.Context, id string) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM summaries WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete summary: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// Append implements TurnStore.
func (d *DB) Append(ctx context.Context, t Turn) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO turns (id, session_id, user_turn, agent_turn, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.SessionID, t.User, t.Agent, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// Recent implements TurnStore, returning newest first.
func (d *DB) Recent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, session_id, user_turn, agent_turn, created_at FROM turns
		 WHERE session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("recent turns: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

// History implements TurnStore, returning chronological order.
func (d *DB) History(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, session_id, user_turn, agent_turn, created_at FROM turns
		 WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("turn history: %w", err)
	}
	defer rows.Close()
	return scanTurns(rows)
}

func scanTurns(rows *sql.Rows) ([]Turn, error) {
	var out []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.User, &t.Agent, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Summary implements SummaryStore.
func (d *DB) Summary(ctx context.Context, sessionID string) (string, error) {
	var summary string
	err := d.db.QueryRowContext(ctx,
		`SELECT summary FROM summaries WHERE session_id = ?`, sessionID).Scan(&summary)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

// Upsert implements SummaryStore.
func (d *DB) Upsert(ctx context.Context, sessionID, summary string) error {
	_, err := d.db.ExecContext(ctx, d.upsertSummary, sessionID, summary, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}
