package store

import (
	"context"
	"database/sql"
	"time"
)

// Session statuses.
const (
	SessionActive  = "active"
	SessionStopped = "stopped"
)

type BotSession struct {
	ID           int
	AccountID    int
	ChannelID    int
	Status       string
	MessagesSent int
	StartedAt    time.Time
	EndedAt      sql.NullTime
}

// OpenSession creates an active session for an (account, channel) pair.
func OpenSession(ctx context.Context, db *sql.DB, accountID, channelID int) (int, error) {
	var id int
	err := db.QueryRowContext(ctx,
		`INSERT INTO bot_sessions (account_id, channel_id, status) VALUES ($1,$2,$3) RETURNING id`,
		accountID, channelID, SessionActive).Scan(&id)
	return id, err
}

// AddSessionMessages increments a session's message counter.
func AddSessionMessages(ctx context.Context, db *sql.DB, sessionID, n int) error {
	_, err := db.ExecContext(ctx,
		`UPDATE bot_sessions SET messages_sent=messages_sent+$1 WHERE id=$2`, n, sessionID)
	return err
}

// CloseChannelSessions closes every active session on a channel, marks the
// affected accounts offline, and returns how many sessions were stopped.
// Calling it again immediately reports zero.
func CloseChannelSessions(ctx context.Context, db *sql.DB, channelID int) (int, error) {
	rows, err := db.QueryContext(ctx, `
		UPDATE bot_sessions SET status=$1, ended_at=NOW()
		WHERE channel_id=$2 AND status=$3
		RETURNING account_id`, SessionStopped, channelID, SessionActive)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	accountIDs := make([]int, 0)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		accountIDs = append(accountIDs, id)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, id := range accountIDs {
		if _, err := db.ExecContext(ctx,
			`UPDATE accounts SET connection_status=$1 WHERE id=$2`, ConnOffline, id); err != nil {
			return 0, err
		}
	}
	return len(accountIDs), nil
}

// ChannelBotCounts reports online/offline/total assigned bots for a channel by
// direct counting.
func ChannelBotCounts(ctx context.Context, db *sql.DB, channelID int) (online, offline, total int, err error) {
	err = db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE connection_status='online'),
		       COUNT(*) FILTER (WHERE connection_status IS DISTINCT FROM 'online'),
		       COUNT(*)
		FROM accounts WHERE assigned_channel_id=$1`, channelID).
		Scan(&online, &offline, &total)
	return
}
