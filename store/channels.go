package store

import (
	"context"
	"database/sql"
	"time"
)

type Channel struct {
	ID            int
	Name          string
	URL           string
	TargetViewers int
	ActiveBots    int
	Status        string
	StreamContext sql.NullString
	LastAnalysis  sql.NullTime
	CreatedAt     time.Time
}

// AddChannel creates a target channel. Returns ErrConflict on duplicate name.
func AddChannel(ctx context.Context, db *sql.DB, name, url string, targetViewers int) (int, error) {
	var id int
	err := db.QueryRowContext(ctx,
		`INSERT INTO channels (name, url, target_viewers) VALUES ($1,$2,$3) RETURNING id`,
		name, url, targetViewers).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	return id, nil
}

// GetChannel loads a channel by id. Returns ErrNotFound for an unknown id.
func GetChannel(ctx context.Context, db *sql.DB, id int) (*Channel, error) {
	var c Channel
	err := db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(url,''), COALESCE(target_viewers,0),
		       COALESCE(active_bots,0), status, stream_context, last_analysis_at, created_at
		FROM channels WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.URL, &c.TargetViewers, &c.ActiveBots, &c.Status,
			&c.StreamContext, &c.LastAnalysis, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListChannels returns all channels newest-first.
func ListChannels(ctx context.Context, db *sql.DB) ([]Channel, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, COALESCE(url,''), COALESCE(target_viewers,0),
		       COALESCE(active_bots,0), status, stream_context, last_analysis_at, created_at
		FROM channels ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	channels := make([]Channel, 0)
	for rows.Next() {
		var c Channel
		if err := rows.Scan(&c.ID, &c.Name, &c.URL, &c.TargetViewers, &c.ActiveBots, &c.Status,
			&c.StreamContext, &c.LastAnalysis, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// SetStreamContext caches the analyzed context string on a channel and bumps
// the analysis timestamp.
func SetStreamContext(ctx context.Context, db *sql.DB, channelID int, context string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE channels SET stream_context=$1, last_analysis_at=NOW() WHERE id=$2`,
		context, channelID)
	return err
}

// RecomputeActiveBots refreshes the channel's stored active_bots counter from
// the accounts table. The counter is a cached aggregate and can drift between
// recomputations when assignment and online-state changes interleave.
func RecomputeActiveBots(ctx context.Context, db *sql.DB, channelID int) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM accounts
		WHERE assigned_channel_id=$1 AND COALESCE(is_active_on_channel, FALSE)=TRUE`,
		channelID).Scan(&n)
	if err != nil {
		return 0, err
	}
	_, err = db.ExecContext(ctx, `UPDATE channels SET active_bots=$1 WHERE id=$2`, n, channelID)
	return n, err
}
