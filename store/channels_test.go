package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/bot-tender/backend/store"
	"github.com/onnwee/bot-tender/backend/testutil"
)

func TestAddChannelDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	if _, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 10); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate channel: got %v, want ErrConflict", err)
	}
}

func TestGetChannelNotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if _, err := store.GetChannel(context.Background(), db, 12345); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestSetStreamContext(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 10)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.SetStreamContext(ctx, db, id, "playing chess, calm mood"); err != nil {
		t.Fatalf("set context: %v", err)
	}
	ch, err := store.GetChannel(ctx, db, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ch.StreamContext.Valid || ch.StreamContext.String != "playing chess, calm mood" {
		t.Errorf("stream context not stored: %+v", ch.StreamContext)
	}
	if !ch.LastAnalysis.Valid {
		t.Error("last_analysis_at should be set")
	}
}

func TestBotConfigRoundtrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 10)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// Unset config falls back to defaults.
	cfg, err := store.GetBotConfig(ctx, db, id)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if cfg != store.DefaultBotConfig(id) {
		t.Errorf("expected defaults, got %+v", cfg)
	}

	cfg.MessageFrequency = 7
	cfg.ActivityLevel = "high"
	cfg.MessageStyle = "enthusiastic"
	cfg.Enabled = false
	if err := store.PutBotConfig(ctx, db, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Second put exercises the upsert path.
	cfg.MessageFrequency = 3
	if err := store.PutBotConfig(ctx, db, cfg); err != nil {
		t.Fatalf("put again: %v", err)
	}

	got, err := store.GetBotConfig(ctx, db, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != cfg {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", got, cfg)
	}
}

func TestBotConfigValidate(t *testing.T) {
	base := store.DefaultBotConfig(1)

	bad := base
	bad.MessageFrequency = 0
	if err := bad.Validate(); err == nil {
		t.Error("frequency 0 should fail validation")
	}
	bad = base
	bad.MessageFrequency = 11
	if err := bad.Validate(); err == nil {
		t.Error("frequency 11 should fail validation")
	}
	bad = base
	bad.ActivityLevel = "extreme"
	if err := bad.Validate(); err == nil {
		t.Error("unknown activity level should fail validation")
	}
	bad = base
	bad.MessageStyle = "sarcastic"
	if err := bad.Validate(); err == nil {
		t.Error("unknown message style should fail validation")
	}
	if err := base.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
