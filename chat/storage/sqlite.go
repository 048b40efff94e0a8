package storage

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS turns (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_turn  TEXT NOT NULL,
	agent_turn TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_id, created_at);
CREATE TABLE IF NOT EXISTS summaries (
	session_id TEXT PRIMARY KEY,
	summary    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);
`

// OpenSQLite opens (or creates) a SQLite database at the given DSN and
// ensures the schema exists. Use ":memory:" for an ephemeral database.
func OpenSQLite(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite is a single-writer engine; a pool of one avoids
	// SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &DB{
		db: db,
		upsertSummary: `INSERT INTO summaries (session_id, summary, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at`,
	}, nil
}
