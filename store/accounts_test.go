package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/onnwee/bot-tender/backend/store"
	"github.com/onnwee/bot-tender/backend/testutil"
)

func TestRegisterAccountDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := store.RegisterAccount(ctx, db, "viewer1", "viewer1@bots.local", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id <= 0 {
		t.Fatalf("bad id %d", id)
	}

	if _, err := store.RegisterAccount(ctx, db, "viewer1", "other@bots.local", "pw"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate username: got %v, want ErrConflict", err)
	}
	if _, err := store.RegisterAccount(ctx, db, "viewer2", "viewer1@bots.local", "pw"); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate email: got %v, want ErrConflict", err)
	}

	_, stats, err := store.ListAccounts(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if stats.Total != 1 {
		t.Errorf("failed inserts must not leave rows: total=%d", stats.Total)
	}
}

func TestNextSuffixContinuesNumbering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	for _, u := range []string{"bot1", "bot2", "bot7"} {
		if _, err := store.RegisterAccount(ctx, db, u, u+"@bots.local", "pw"); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}
	// Unrelated prefixes and non-numeric suffixes are ignored.
	if _, err := store.RegisterAccount(ctx, db, "botx", "botx@bots.local", "pw"); err != nil {
		t.Fatalf("register botx: %v", err)
	}
	if _, err := store.RegisterAccount(ctx, db, "viewer99", "viewer99@bots.local", "pw"); err != nil {
		t.Fatalf("register viewer99: %v", err)
	}

	next, err := store.NextSuffix(ctx, db, "bot")
	if err != nil {
		t.Fatalf("next suffix: %v", err)
	}
	if next != 8 {
		t.Errorf("got next suffix %d, want 8", next)
	}

	next, err = store.NextSuffix(ctx, db, "fresh")
	if err != nil {
		t.Fatalf("next suffix fresh: %v", err)
	}
	if next != 1 {
		t.Errorf("fresh prefix should start at 1, got %d", next)
	}
}

func TestNextSuffixLiteralPrefix(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	// The underscore is a wildcard inside SQL LIKE. The suffix computation
	// trims the literal prefix in Go, so over-matched rows like "botX9" must
	// not contribute to the result.
	for _, u := range []string{"bot_1", "bot_3", "botX9", "bots42"} {
		if _, err := store.RegisterAccount(ctx, db, u, u+"@bots.local", "pw"); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}

	next, err := store.NextSuffix(ctx, db, "bot_")
	if err != nil {
		t.Fatalf("next suffix: %v", err)
	}
	if next != 4 {
		t.Errorf("got next suffix %d, want 4", next)
	}
}

func TestBanAccount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	id, err := store.RegisterAccount(ctx, db, "banme", "banme@bots.local", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	username, err := store.BanAccount(ctx, db, id)
	if err != nil {
		t.Fatalf("ban: %v", err)
	}
	if username != "banme" {
		t.Errorf("got username %q", username)
	}

	_, stats, err := store.ListAccounts(ctx, db)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if stats.Banned != 1 || stats.Active != 0 {
		t.Errorf("stats after ban: %+v", stats)
	}

	if _, err := store.BanAccount(ctx, db, 99999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing account: got %v, want ErrNotFound", err)
	}
}

func TestBanRecomputesActiveBots(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	ch, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 5)
	if err != nil {
		t.Fatalf("add channel: %v", err)
	}
	id, err := store.RegisterAccount(ctx, db, "b1", "b1@bots.local", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.AssignAccounts(ctx, db, ch, 1); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := store.RecomputeActiveBots(ctx, db, ch); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if _, err := store.BanAccount(ctx, db, id); err != nil {
		t.Fatalf("ban: %v", err)
	}
	got, err := store.GetChannel(ctx, db, ch)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if got.ActiveBots != 0 {
		t.Errorf("active_bots after ban = %d, want 0", got.ActiveBots)
	}
}

func TestAssignAccountsEligibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	chA, err := store.AddChannel(ctx, db, "streamer_a", "https://twitch.tv/streamer_a", 10)
	if err != nil {
		t.Fatalf("add channel: %v", err)
	}
	chB, err := store.AddChannel(ctx, db, "streamer_b", "https://twitch.tv/streamer_b", 10)
	if err != nil {
		t.Fatalf("add channel: %v", err)
	}

	var ids []int
	for _, u := range []string{"a1", "a2", "a3", "a4"} {
		id, err := store.RegisterAccount(ctx, db, u, u+"@bots.local", "pw")
		if err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
		ids = append(ids, id)
	}
	// One banned, one taken by the other channel.
	if _, err := store.BanAccount(ctx, db, ids[0]); err != nil {
		t.Fatalf("ban: %v", err)
	}
	if taken, err := store.AssignAccounts(ctx, db, chB, 1); err != nil || len(taken) != 1 {
		t.Fatalf("assign to other channel: %v (%d)", err, len(taken))
	}

	assigned, err := store.AssignAccounts(ctx, db, chA, 10)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(assigned) != 2 {
		t.Fatalf("got %d assigned, want 2 (banned and foreign accounts excluded)", len(assigned))
	}

	// Re-assigning is a no-op while the accounts are active on the channel.
	again, err := store.AssignAccounts(ctx, db, chA, 10)
	if err != nil {
		t.Fatalf("re-assign: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("active accounts must not be re-assigned, got %d", len(again))
	}
}

func TestStartableAccounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	ch, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 5)
	if err != nil {
		t.Fatalf("add channel: %v", err)
	}
	id, err := store.RegisterAccount(ctx, db, "s1", "s1@bots.local", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := store.AssignAccounts(ctx, db, ch, 1); err != nil {
		t.Fatalf("assign: %v", err)
	}

	startable, err := store.StartableAccounts(ctx, db, ch)
	if err != nil {
		t.Fatalf("startable: %v", err)
	}
	if len(startable) != 1 || startable[0].ID != id {
		t.Fatalf("got %d startable accounts", len(startable))
	}

	if err := store.MarkOnline(ctx, db, id); err != nil {
		t.Fatalf("mark online: %v", err)
	}
	startable, err = store.StartableAccounts(ctx, db, ch)
	if err != nil {
		t.Fatalf("startable: %v", err)
	}
	if len(startable) != 0 {
		t.Errorf("online accounts are not startable, got %d", len(startable))
	}
}
