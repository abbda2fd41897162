package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/onnwee/bot-tender/backend/ai"
	"github.com/onnwee/bot-tender/backend/bots"
	"github.com/onnwee/bot-tender/backend/chat"
	"github.com/onnwee/bot-tender/backend/config"
	"github.com/onnwee/bot-tender/backend/crypto"
	"github.com/onnwee/bot-tender/backend/db"
	"github.com/onnwee/bot-tender/backend/server"
	"github.com/onnwee/bot-tender/backend/telemetry"
	"github.com/onnwee/bot-tender/backend/twitchapi"
)

func setupLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	_ = godotenv.Load()
	setupLogger()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("bot-tender", "dev")
	if err != nil {
		slog.Warn("tracing init failed, continuing without tracing", "err", err)
	} else {
		defer shutdownTracing()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(cfg.DBDsn)
	if err != nil {
		slog.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}
	defer database.Close()
	database.SetMaxOpenConns(config.EnvInt("DB_MAX_OPEN_CONNS", 10))
	database.SetMaxIdleConns(config.EnvInt("DB_MAX_IDLE_CONNS", 5))

	if err := db.RunMigrations(database); err != nil {
		slog.Warn("versioned migrations unavailable, falling back to embedded schema", "err", err)
		if err := db.Migrate(ctx, database); err != nil {
			slog.Error("failed to migrate database", "err", err)
			os.Exit(1)
		}
	}

	var enc crypto.Encryptor
	if key := os.Getenv("ENCRYPTION_KEY"); key != "" {
		enc, err = crypto.NewAESEncryptor(key)
		if err != nil {
			slog.Error("invalid ENCRYPTION_KEY", "err", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("ENCRYPTION_KEY not set, chat tokens will not be stored")
	}

	var helix *twitchapi.HelixClient
	if cfg.HelixEnabled() {
		helix = &twitchapi.HelixClient{
			AppTokenSource: &twitchapi.TokenSource{
				ClientID:     cfg.TwitchClientID,
				ClientSecret: cfg.TwitchClientSecret,
			},
			ClientID: cfg.TwitchClientID,
		}
	} else {
		slog.Info("twitch credentials not set, stream previews disabled")
	}

	aiClient := ai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	if aiClient == nil {
		slog.Info("OPENAI_API_KEY not set, running with static fallback messages only")
	}

	orch := &bots.Orchestrator{
		DB:     database,
		AI:     aiClient,
		Helix:  helix,
		Sender: &chat.Sender{Enabled: cfg.ChatSendEnabled},
		Enc:    enc,
	}

	if err := server.Start(ctx, database, orch, cfg.HTTPAddr); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
}
