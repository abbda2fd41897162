package bots_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/onnwee/bot-tender/backend/ai"
	"github.com/onnwee/bot-tender/backend/bots"
	"github.com/onnwee/bot-tender/backend/store"
	"github.com/onnwee/bot-tender/backend/testutil"
)

// mockAIClient returns an AI client whose completion endpoint is handler.
func mockAIClient(t *testing.T, handler http.HandlerFunc) *ai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL
	return ai.NewWithConfig(cfg, "gpt-4o-mini")
}

func failingAIClient(t *testing.T) *ai.Client {
	return mockAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
}

func workingAIClient(t *testing.T, content string) *ai.Client {
	return mockAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
}

func setupOrchestrator(t *testing.T) (*bots.Orchestrator, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return &bots.Orchestrator{DB: db}, db
}

func addChannelWithBots(t *testing.T, db *sql.DB, n int) int {
	t.Helper()
	ctx := context.Background()
	channelID, err := store.AddChannel(ctx, db, "streamer", "https://twitch.tv/streamer", 10)
	if err != nil {
		t.Fatalf("add channel: %v", err)
	}
	for i := 1; i <= n; i++ {
		u := fmt.Sprintf("orcbot%d", i)
		if _, err := store.RegisterAccount(ctx, db, u, u+"@bots.local", "pw"); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}
	return channelID
}

func TestAssignValidation(t *testing.T) {
	orch, db := setupOrchestrator(t)
	ctx := context.Background()
	channelID := addChannelWithBots(t, db, 1)

	if _, err := orch.Assign(ctx, channelID, 0); err == nil {
		t.Error("count 0 should be rejected")
	}
	if _, err := orch.Assign(ctx, 99999, 1); err != store.ErrNotFound {
		t.Errorf("unknown channel: got %v, want ErrNotFound", err)
	}
}

func TestAssignThenStartThenStop(t *testing.T) {
	orch, db := setupOrchestrator(t)
	ctx := context.Background()
	channelID := addChannelWithBots(t, db, 3)

	assignRes, err := orch.Assign(ctx, channelID, 3)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assignRes.Assigned != 3 {
		t.Fatalf("assigned = %d, want 3", assignRes.Assigned)
	}
	if assignRes.ActiveBots != 3 {
		t.Errorf("activeBots = %d, want 3", assignRes.ActiveBots)
	}

	startRes, err := orch.Start(ctx, channelID, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if startRes.Started != 3 {
		t.Fatalf("started = %d, want 3", startRes.Started)
	}
	if startRes.AIEnabled {
		t.Error("aiEnabled must be false without an AI client")
	}
	if startRes.MessagesPosted < 3 || startRes.MessagesPosted > 6 {
		t.Errorf("messagesPosted = %d, want 3..6 (1-2 per bot)", startRes.MessagesPosted)
	}

	// Without AI every message comes from the static pool.
	msgs, err := store.RecentMessages(ctx, db, channelID, 50)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) != startRes.MessagesPosted {
		t.Errorf("stored %d messages, reported %d", len(msgs), startRes.MessagesPosted)
	}
	pool := map[string]bool{}
	for _, p := range ai.FallbackPool() {
		pool[p] = true
	}
	for _, m := range msgs {
		if m.IsAIGenerated {
			t.Errorf("message %q marked AI-generated without AI", m.Text)
		}
		if !pool[m.Text] {
			t.Errorf("message %q not from the static pool", m.Text)
		}
	}

	status, err := orch.Status(ctx, channelID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Online != 3 || status.Total != 3 {
		t.Errorf("status = %+v, want 3 online of 3", status)
	}

	stopRes, err := orch.Stop(ctx, channelID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopRes.Stopped != 3 {
		t.Errorf("stopped = %d, want 3", stopRes.Stopped)
	}

	status, err = orch.Status(ctx, channelID)
	if err != nil {
		t.Fatalf("status after stop: %v", err)
	}
	if status.Online != 0 || status.Offline != 3 {
		t.Errorf("status after stop = %+v, want 0 online, 3 offline", status)
	}

	// Stop is idempotent.
	stopRes, err = orch.Stop(ctx, channelID)
	if err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if stopRes.Stopped != 0 {
		t.Errorf("second stop = %d, want 0", stopRes.Stopped)
	}
}

func TestStartWithNoAssignedBots(t *testing.T) {
	orch, db := setupOrchestrator(t)
	ctx := context.Background()
	channelID := addChannelWithBots(t, db, 0)

	res, err := orch.Start(ctx, channelID, true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Started != 0 || res.MessagesPosted != 0 {
		t.Errorf("empty channel start = %+v, want zeros", res)
	}
}

func TestStartIsIdempotentWhileOnline(t *testing.T) {
	orch, db := setupOrchestrator(t)
	ctx := context.Background()
	channelID := addChannelWithBots(t, db, 2)

	if _, err := orch.Assign(ctx, channelID, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	first, err := orch.Start(ctx, channelID, false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if first.Started != 2 {
		t.Fatalf("started = %d, want 2", first.Started)
	}

	// Already-online bots are not started again.
	second, err := orch.Start(ctx, channelID, false)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if second.Started != 0 {
		t.Errorf("second start = %d, want 0", second.Started)
	}
}

func TestStartWithUnavailableAI(t *testing.T) {
	orch, db := setupOrchestrator(t)
	orch.AI = failingAIClient(t)
	ctx := context.Background()
	channelID := addChannelWithBots(t, db, 2)

	if _, err := orch.Assign(ctx, channelID, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	res, err := orch.Start(ctx, channelID, true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Started != 2 {
		t.Fatalf("started = %d, want 2", res.Started)
	}
	if res.AIEnabled {
		t.Error("aiEnabled must be false when the generation service is down")
	}
	if res.Context != "" {
		t.Errorf("degraded analysis must not be reported as context: %q", res.Context)
	}

	pool := map[string]bool{}
	for _, p := range ai.FallbackPool() {
		pool[p] = true
	}
	msgs, err := store.RecentMessages(ctx, db, channelID, 50)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("expected posted messages")
	}
	for _, m := range msgs {
		if m.IsAIGenerated {
			t.Errorf("static fallback %q tagged as AI-generated", m.Text)
		}
		if !pool[m.Text] {
			t.Errorf("message %q not from the static pool", m.Text)
		}
	}

	// The channel still caches the generic sentence.
	ch, err := store.GetChannel(ctx, db, channelID)
	if err != nil {
		t.Fatalf("get channel: %v", err)
	}
	if !ch.StreamContext.Valid || ch.StreamContext.String != ai.GenericContext {
		t.Errorf("cached context = %+v, want the generic sentence", ch.StreamContext)
	}
}

func TestStartWithWorkingAI(t *testing.T) {
	orch, db := setupOrchestrator(t)
	orch.AI = workingAIClient(t, "what a clutch moment")
	ctx := context.Background()
	channelID := addChannelWithBots(t, db, 2)

	if _, err := orch.Assign(ctx, channelID, 2); err != nil {
		t.Fatalf("assign: %v", err)
	}
	res, err := orch.Start(ctx, channelID, true)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if res.Started != 2 {
		t.Fatalf("started = %d, want 2", res.Started)
	}
	if !res.AIEnabled {
		t.Error("aiEnabled must be true when generation succeeds")
	}
	if res.Context == "" {
		t.Error("expected the analyzed context in the response")
	}

	msgs, err := store.RecentMessages(ctx, db, channelID, 50)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(msgs) == 0 {
		t.Fatal("expected posted messages")
	}
	for _, m := range msgs {
		if !m.IsAIGenerated {
			t.Errorf("model output %q not tagged as AI-generated", m.Text)
		}
		if m.Text != "what a clutch moment" {
			t.Errorf("unexpected message text %q", m.Text)
		}
	}
}

func TestStopUnknownChannel(t *testing.T) {
	orch, _ := setupOrchestrator(t)
	if _, err := orch.Stop(context.Background(), 99999); err != store.ErrNotFound {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
