package store

import (
	"context"
	"database/sql"
	"time"
)

type ChatMessage struct {
	ID            int
	AccountID     int
	ChannelID     int
	SessionID     int
	Text          string
	IsAIGenerated bool
	ContextUsed   sql.NullString
	SnapshotID    sql.NullInt64
	CreatedAt     time.Time
}

// InsertMessage records one posted chat message. snapshotID may be 0 when no
// visual snapshot produced the message.
func InsertMessage(ctx context.Context, db *sql.DB, m ChatMessage) (int, error) {
	var snapshot any
	if m.SnapshotID.Valid {
		snapshot = m.SnapshotID.Int64
	}
	var contextUsed any
	if m.ContextUsed.Valid {
		contextUsed = m.ContextUsed.String
	}
	var id int
	err := db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (account_id, channel_id, session_id, text, is_ai_generated, context_used, snapshot_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		m.AccountID, m.ChannelID, m.SessionID, m.Text, m.IsAIGenerated, contextUsed, snapshot).Scan(&id)
	return id, err
}

// MessageView is the chat history row shape returned to the API.
type MessageView struct {
	ID            int       `json:"id"`
	Username      string    `json:"username"`
	Text          string    `json:"text"`
	IsAIGenerated bool      `json:"aiGenerated"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RecentMessages returns the newest messages for a channel, newest first.
func RecentMessages(ctx context.Context, db *sql.DB, channelID, limit int) ([]MessageView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT m.id, a.username, m.text, COALESCE(m.is_ai_generated, FALSE), m.created_at
		FROM chat_messages m
		JOIN accounts a ON a.id = m.account_id
		WHERE m.channel_id=$1
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]MessageView, 0)
	for rows.Next() {
		var v MessageView
		if err := rows.Scan(&v.ID, &v.Username, &v.Text, &v.IsAIGenerated, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
