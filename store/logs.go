package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Log types recorded in registration_logs.
const (
	LogSuccess = "success"
	LogError   = "error"
	LogInfo    = "info"
)

type LogEntry struct {
	ID        int       `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"timestamp"`
}

// AppendLog records a side-effect log line for a mutating operation. The log
// is best-effort: failures are reported to the logger, never to the caller.
func AppendLog(ctx context.Context, db *sql.DB, accountID int, logType, message string) {
	var acct any
	if accountID > 0 {
		acct = accountID
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO registration_logs (account_id, log_type, message) VALUES ($1,$2,$3)`,
		acct, logType, message); err != nil {
		slog.Warn("failed to append registration log", slog.Any("err", err))
	}
}

// RecentLogs returns the latest log entries, newest first.
func RecentLogs(ctx context.Context, db *sql.DB, limit int) ([]LogEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, log_type, message, created_at
		FROM registration_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]LogEntry, 0)
	for rows.Next() {
		var e LogEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
