// Package main provides a CLI tool to encrypt chat tokens stored in
// plaintext.
//
// Accounts created before ENCRYPTION_KEY was configured carry their chat
// token with chat_token_encrypted=false. This tool encrypts those tokens in
// place with AES-256-GCM.
//
// Usage:
//   encrypt-tokens [--dry-run]
//
// Environment Variables:
//   DB_DSN: Database connection string (required)
//   ENCRYPTION_KEY: Base64-encoded 32-byte encryption key (required)
package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/bot-tender/backend/crypto"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Show what would be encrypted without making changes")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		slog.Error("DB_DSN environment variable is required")
		os.Exit(1)
	}
	key := os.Getenv("ENCRYPTION_KEY")
	if key == "" {
		slog.Error("ENCRYPTION_KEY environment variable is required")
		os.Exit(1)
	}
	enc, err := crypto.NewAESEncryptor(key)
	if err != nil {
		slog.Error("failed to initialize encryptor", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		slog.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, chat_token
		FROM accounts
		WHERE chat_token IS NOT NULL AND chat_token <> ''
		  AND COALESCE(chat_token_encrypted, FALSE) = FALSE
		ORDER BY id`)
	if err != nil {
		slog.Error("failed to query accounts", slog.Any("error", err))
		os.Exit(1)
	}
	defer rows.Close()

	type row struct {
		id       int
		username string
		token    string
	}
	var pending []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.username, &r.token); err != nil {
			slog.Error("failed to scan row", slog.Any("error", err))
			os.Exit(1)
		}
		pending = append(pending, r)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read rows", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("plaintext chat tokens found", slog.Int("count", len(pending)))
	if *dryRun {
		for _, r := range pending {
			slog.Info("would encrypt", slog.Int("account_id", r.id), slog.String("username", r.username))
		}
		return
	}

	encrypted := 0
	for _, r := range pending {
		ct, err := crypto.EncryptString(enc, r.token)
		if err != nil {
			slog.Error("failed to encrypt token", slog.Int("account_id", r.id), slog.Any("error", err))
			os.Exit(1)
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE accounts SET chat_token=$1, chat_token_encrypted=TRUE WHERE id=$2`,
			ct, r.id); err != nil {
			slog.Error("failed to update account", slog.Int("account_id", r.id), slog.Any("error", err))
			os.Exit(1)
		}
		encrypted++
	}
	slog.Info("migration complete", slog.Int("encrypted", encrypted))
}
