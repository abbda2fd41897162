// Package db provides database connection helpers and schema migration.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection pool for the given DSN. The returned
// *sql.DB is shared by all requests; individual handlers must not open their
// own connections.
func Connect(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			assigned_channel_id INTEGER,
			is_active_on_channel BOOLEAN DEFAULT FALSE,
			connection_status TEXT,
			chat_token TEXT,
			chat_token_encrypted BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			last_used TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id SERIAL PRIMARY KEY,
			name TEXT UNIQUE NOT NULL,
			url TEXT,
			target_viewers INTEGER DEFAULT 0,
			active_bots INTEGER DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'idle',
			stream_context TEXT,
			last_analysis_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS bot_sessions (
			id SERIAL PRIMARY KEY,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			channel_id INTEGER NOT NULL REFERENCES channels(id),
			status TEXT NOT NULL DEFAULT 'active',
			messages_sent INTEGER DEFAULT 0,
			started_at TIMESTAMPTZ DEFAULT NOW(),
			ended_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS stream_snapshots (
			id SERIAL PRIMARY KEY,
			channel_id INTEGER NOT NULL REFERENCES channels(id),
			screenshot_url TEXT,
			analysis_text TEXT,
			detected_game TEXT,
			detected_activity TEXT,
			reactions TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS chat_messages (
			id SERIAL PRIMARY KEY,
			account_id INTEGER NOT NULL REFERENCES accounts(id),
			channel_id INTEGER NOT NULL REFERENCES channels(id),
			session_id INTEGER NOT NULL REFERENCES bot_sessions(id),
			text TEXT NOT NULL,
			is_ai_generated BOOLEAN DEFAULT FALSE,
			context_used TEXT,
			snapshot_id INTEGER REFERENCES stream_snapshots(id),
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS registration_logs (
			id SERIAL PRIMARY KEY,
			account_id INTEGER,
			log_type TEXT NOT NULL,
			message TEXT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT,
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`ALTER TABLE accounts ADD COLUMN IF NOT EXISTS chat_token TEXT`,
		`ALTER TABLE accounts ADD COLUMN IF NOT EXISTS chat_token_encrypted BOOLEAN DEFAULT FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_status ON accounts(status)`,
		`CREATE INDEX IF NOT EXISTS idx_accounts_assigned ON accounts(assigned_channel_id, connection_status)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_channel_status ON bot_sessions(channel_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_channel_created ON chat_messages(channel_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_created ON registration_logs(created_at)`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
