package store

import (
	"context"
	"database/sql"
	"encoding/json"
)

type StreamSnapshot struct {
	ChannelID        int
	ScreenshotURL    string
	AnalysisText     string
	DetectedGame     string
	DetectedActivity string
	Reactions        []string
}

// InsertSnapshot records one AI-derived description of a channel's visual
// state. The ordered reaction list is stored as a JSON array.
func InsertSnapshot(ctx context.Context, db *sql.DB, s StreamSnapshot) (int, error) {
	reactions, err := json.Marshal(s.Reactions)
	if err != nil {
		return 0, err
	}
	var id int
	err = db.QueryRowContext(ctx, `
		INSERT INTO stream_snapshots (channel_id, screenshot_url, analysis_text, detected_game, detected_activity, reactions)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		s.ChannelID, s.ScreenshotURL, s.AnalysisText, s.DetectedGame, s.DetectedActivity, string(reactions)).Scan(&id)
	return id, err
}
