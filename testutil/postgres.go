// Package testutil holds helpers shared by integration tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/onnwee/bot-tender/backend/db"
	"github.com/onnwee/bot-tender/backend/telemetry"
)

// SetupTestDB opens the database named by TEST_PG_DSN, applies the schema,
// and truncates all tables so each test starts clean. Tests calling it are
// skipped when TEST_PG_DSN is unset.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set; skipping database test")
	}

	telemetry.Init()

	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		t.Fatalf("ping test db: %v", err)
	}
	if err := db.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	tables := []string{
		"chat_messages", "bot_sessions", "stream_snapshots",
		"registration_logs", "kv", "accounts", "channels",
	}
	for _, tbl := range tables {
		if _, err := conn.ExecContext(ctx, "TRUNCATE TABLE "+tbl+" RESTART IDENTITY CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", tbl, err)
		}
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}
