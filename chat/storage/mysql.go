package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS sessions (
		id         VARCHAR(64)  PRIMARY KEY,
		user_id    VARCHAR(64)  NOT NULL,
		title      VARCHAR(255) NOT NULL,
		created_at DATETIME(6)  NOT NULL,
		updated_at DATETIME(6)  NOT NULL,
		INDEX idx_sessions_user (user_id, updated_at)
	)`,
	`CREATE TABLE IF NOT EXISTS turns (
		id         VARCHAR(64) PRIMARY KEY,
		session_id VARCHAR(64) NOT NULL,
		user_turn  TEXT        NOT NULL,
		agent_turn TEXT        NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_turns_session (session_id, created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS summaries (
		session_id VARCHAR(64) PRIMARY KEY,
		summary    TEXT        NOT NULL,
		updated_at DATETIME(6) NOT NULL
	)`,
}

// OpenMySQL connects to MySQL and ensures the schema exists. The DSN must
// include parseTime=true so DATETIME columns scan into time.Time.
func OpenMySQL(dsn string) (*DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(time.Hour)

	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create mysql schema: %w", err)
		}
	}
	return &DB{
		db: db,
		upsertSummary: `INSERT INTO summaries (session_id, summary, updated_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE summary = VALUES(summary), updated_at = VALUES(updated_at)`,
	}, nil
}
