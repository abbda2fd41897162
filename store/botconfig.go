package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// BotConfig is the per-channel bot behaviour document stored in kv under
// botcfg:<channelID>.
type BotConfig struct {
	ChannelID          int    `json:"channelId"`
	MessageFrequency   int    `json:"messageFrequency"`
	ActivityLevel      string `json:"activityLevel"`
	MessageStyle       string `json:"messageStyle"`
	UseContextAnalysis bool   `json:"useContextAnalysis"`
	Enabled            bool   `json:"enabled"`
}

// DefaultBotConfig returns the config used before any document is saved.
func DefaultBotConfig(channelID int) BotConfig {
	return BotConfig{
		ChannelID:          channelID,
		MessageFrequency:   5,
		ActivityLevel:      "medium",
		MessageStyle:       "casual",
		UseContextAnalysis: true,
		Enabled:            false,
	}
}

// Validate checks the document's enumerated fields and ranges.
func (c BotConfig) Validate() error {
	if c.ChannelID <= 0 {
		return fmt.Errorf("channelId is required")
	}
	if c.MessageFrequency < 1 || c.MessageFrequency > 10 {
		return fmt.Errorf("messageFrequency must be between 1 and 10")
	}
	switch c.ActivityLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("activityLevel must be one of low, medium, high")
	}
	switch c.MessageStyle {
	case "casual", "enthusiastic", "toxic", "supportive":
	default:
		return fmt.Errorf("messageStyle must be one of casual, enthusiastic, toxic, supportive")
	}
	return nil
}

func botConfigKey(channelID int) string { return fmt.Sprintf("botcfg:%d", channelID) }

// GetBotConfig loads a channel's bot config, falling back to defaults when no
// document has been saved yet.
func GetBotConfig(ctx context.Context, db *sql.DB, channelID int) (BotConfig, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, botConfigKey(channelID)).Scan(&raw)
	if err == sql.ErrNoRows {
		return DefaultBotConfig(channelID), nil
	}
	if err != nil {
		return BotConfig{}, err
	}
	var cfg BotConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return BotConfig{}, fmt.Errorf("decode bot config: %w", err)
	}
	return cfg, nil
}

// PutBotConfig validates and upserts a channel's bot config document.
func PutBotConfig(ctx context.Context, db *sql.DB, cfg BotConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES ($1,$2,NOW())
		 ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		botConfigKey(cfg.ChannelID), string(raw))
	return err
}
