// Package bots contains the orchestration logic for bot lifecycles on a
// channel: assigning accounts, starting and stopping session batches, and
// reporting status.
//
// Per (account, channel) pair the lifecycle is
// unassigned -> assigned/offline -> online (active session) -> offline.
// Banned accounts are terminal and never selected.
package bots

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/onnwee/bot-tender/backend/ai"
	"github.com/onnwee/bot-tender/backend/chat"
	"github.com/onnwee/bot-tender/backend/crypto"
	"github.com/onnwee/bot-tender/backend/store"
	"github.com/onnwee/bot-tender/backend/telemetry"
	"github.com/onnwee/bot-tender/backend/twitchapi"
)

// Orchestrator coordinates stores, the AI analyzer/generator, Helix metadata
// lookups, and best-effort chat delivery. AI, Helix, Sender, and Enc are all
// optional; a nil value disables only the feature it backs.
type Orchestrator struct {
	DB     *sql.DB
	AI     *ai.Client
	Helix  *twitchapi.HelixClient
	Sender *chat.Sender
	Enc    crypto.Encryptor
}

type AssignResult struct {
	Assigned   int `json:"assigned"`
	ActiveBots int `json:"activeBots"`
}

type StartResult struct {
	Started        int    `json:"started"`
	MessagesPosted int    `json:"messagesPosted"`
	AIEnabled      bool   `json:"aiEnabled"`
	Context        string `json:"context,omitempty"`
}

type StopResult struct {
	Stopped int `json:"stopped"`
}

type StatusResult struct {
	Online     int `json:"online"`
	Offline    int `json:"offline"`
	Total      int `json:"total"`
	ActiveBots int `json:"activeBots"`
}

// Assign attaches up to count eligible accounts to the channel and recomputes
// its active_bots counter. Zero eligible accounts reports assigned=0, not an
// error.
func (o *Orchestrator) Assign(ctx context.Context, channelID, count int) (AssignResult, error) {
	if count <= 0 {
		return AssignResult{}, fmt.Errorf("count must be positive")
	}
	if _, err := store.GetChannel(ctx, o.DB, channelID); err != nil {
		return AssignResult{}, err
	}
	ids, err := store.AssignAccounts(ctx, o.DB, channelID, count)
	if err != nil {
		return AssignResult{}, err
	}
	active, err := store.RecomputeActiveBots(ctx, o.DB, channelID)
	if err != nil {
		return AssignResult{}, err
	}
	return AssignResult{Assigned: len(ids), ActiveBots: active}, nil
}

// Start opens a session for every assigned, active, currently-offline account
// on the channel and posts 1-2 messages per bot. With AI requested and
// configured, one context analysis runs for the whole batch and a candidate
// pool of up to 2x the bot count is pre-generated; analyzer or generator
// failures degrade to the static fallback pool without aborting bot startup.
// The aiEnabled result reports whether the model actually produced messages,
// not merely whether a key is configured: with the generation service down
// every posted message is a static fallback and aiEnabled is false.
//
// Note: two concurrent Start calls on the same channel race on session
// creation; callers that care must serialize per channel.
func (o *Orchestrator) Start(ctx context.Context, channelID int, useAI bool) (StartResult, error) {
	var res StartResult
	var err error
	telemetry.TimeFunc(telemetry.StartBatchDuration, func() {
		res, err = o.startBatch(ctx, channelID, useAI)
	})
	return res, err
}

func (o *Orchestrator) startBatch(ctx context.Context, channelID int, useAI bool) (StartResult, error) {
	ch, err := store.GetChannel(ctx, o.DB, channelID)
	if err != nil {
		return StartResult{}, err
	}
	accounts, err := store.StartableAccounts(ctx, o.DB, channelID)
	if err != nil {
		return StartResult{}, err
	}

	aiRequested := useAI && o.AI != nil
	res := StartResult{AIEnabled: aiRequested}
	if len(accounts) == 0 {
		return res, nil
	}

	var pool []string
	var snapshotID sql.NullInt64
	streamContext := ""
	if aiRequested {
		var analyzed bool
		streamContext, snapshotID, analyzed = o.analyzeOnce(ctx, ch)
		var generated bool
		pool, generated = o.AI.GenerateBatch(ctx, streamContext, 2*len(accounts))
		res.AIEnabled = generated
		if analyzed {
			res.Context = streamContext
		}
	}

	for _, acct := range accounts {
		sessionID, err := store.OpenSession(ctx, o.DB, acct.ID, channelID)
		if err != nil {
			return res, err
		}
		telemetry.SessionsStarted.Inc()

		//nolint:gosec // G404: message count variety, not security
		n := 1 + rand.Intn(2)
		for i := 0; i < n; i++ {
			text := ""
			fromPool := false
			if len(pool) > 0 {
				text, pool = pool[0], pool[1:]
				fromPool = true
			} else {
				text = ai.Fallback()
			}
			// The candidate pool holds only model output, so a pool draw
			// is exactly an AI-generated message.
			msg := store.ChatMessage{
				AccountID:     acct.ID,
				ChannelID:     channelID,
				SessionID:     sessionID,
				Text:          text,
				IsAIGenerated: fromPool,
			}
			if fromPool {
				msg.ContextUsed = sql.NullString{String: streamContext, Valid: true}
				msg.SnapshotID = snapshotID
			}
			if _, err := store.InsertMessage(ctx, o.DB, msg); err != nil {
				return res, err
			}
			res.MessagesPosted++
			telemetry.MessagesPosted.Inc()
			if msg.IsAIGenerated {
				telemetry.AIMessages.Inc()
			} else {
				telemetry.FallbackMessages.Inc()
			}
			o.deliver(ctx, acct, ch.Name, text)
		}
		if err := store.AddSessionMessages(ctx, o.DB, sessionID, n); err != nil {
			return res, err
		}
		if err := store.MarkOnline(ctx, o.DB, acct.ID); err != nil {
			return res, err
		}
		_ = store.TouchLastUsed(ctx, o.DB, acct.ID)
		res.Started++
	}

	if _, err := store.RecomputeActiveBots(ctx, o.DB, channelID); err != nil {
		return res, err
	}
	online, _, _, err := store.ChannelBotCounts(ctx, o.DB, channelID)
	if err == nil {
		telemetry.SetOnlineBots(online)
	}
	return res, nil
}

// analyzeOnce runs one context analysis for a start batch: preview image via
// Helix when available, else a text-only guess, else the fixed generic
// sentence. The resulting context string is cached on the channel; a snapshot
// row is written only for a successful visual analysis. The bool reports
// whether analysis actually ran, as opposed to degrading to the generic
// sentence.
func (o *Orchestrator) analyzeOnce(ctx context.Context, ch *store.Channel) (string, sql.NullInt64, bool) {
	previewURL := ""
	if o.Helix != nil {
		previewURL = o.Helix.PreviewImageURL(ctx, ch.Name)
	}

	telemetry.AnalysisCalls.Inc()
	var sc ai.StreamContext
	var ok bool
	telemetry.TimeFunc(telemetry.AnalysisDuration, func() {
		sc, ok = o.AI.AnalyzeStream(ctx, ch.Name, previewURL)
	})
	if !ok {
		telemetry.AnalysisFailed.Inc()
	}

	if err := store.SetStreamContext(ctx, o.DB, ch.ID, sc.Analysis); err != nil {
		slog.Warn("failed to cache stream context", slog.Int("channel", ch.ID), slog.Any("err", err))
	}

	var snapshotID sql.NullInt64
	if ok && sc.FromImage {
		id, err := store.InsertSnapshot(ctx, o.DB, store.StreamSnapshot{
			ChannelID:        ch.ID,
			ScreenshotURL:    previewURL,
			AnalysisText:     sc.Analysis,
			DetectedGame:     sc.Game,
			DetectedActivity: sc.Activity,
			Reactions:        sc.Reactions,
		})
		if err != nil {
			slog.Warn("failed to record stream snapshot", slog.Int("channel", ch.ID), slog.Any("err", err))
		} else {
			snapshotID = sql.NullInt64{Int64: int64(id), Valid: true}
		}
	}
	return sc.Analysis, snapshotID, ok
}

// deliver sends text to the live channel as acct when chat delivery is
// enabled and the account has a stored chat token. Always best-effort.
func (o *Orchestrator) deliver(ctx context.Context, acct store.Account, channelName, text string) {
	if o.Sender == nil || !o.Sender.Enabled {
		return
	}
	token, err := store.ChatToken(ctx, o.DB, o.Enc, acct.ID)
	if err != nil || token == "" {
		return
	}
	o.Sender.Deliver(ctx, acct.Username, token, channelName, text)
}

// Stop closes every active session on the channel and marks the affected
// accounts offline. A second call immediately after reports stopped=0.
func (o *Orchestrator) Stop(ctx context.Context, channelID int) (StopResult, error) {
	if _, err := store.GetChannel(ctx, o.DB, channelID); err != nil {
		return StopResult{}, err
	}
	stopped, err := store.CloseChannelSessions(ctx, o.DB, channelID)
	if err != nil {
		return StopResult{}, err
	}
	for i := 0; i < stopped; i++ {
		telemetry.SessionsStopped.Inc()
	}
	if _, err := store.RecomputeActiveBots(ctx, o.DB, channelID); err != nil {
		return StopResult{}, err
	}
	online, _, _, err := store.ChannelBotCounts(ctx, o.DB, channelID)
	if err == nil {
		telemetry.SetOnlineBots(online)
	}
	return StopResult{Stopped: stopped}, nil
}

// Status reports online/offline/total assigned bots by direct counting,
// alongside the channel's cached active_bots value.
func (o *Orchestrator) Status(ctx context.Context, channelID int) (StatusResult, error) {
	ch, err := store.GetChannel(ctx, o.DB, channelID)
	if err != nil {
		return StatusResult{}, err
	}
	online, offline, total, err := store.ChannelBotCounts(ctx, o.DB, channelID)
	if err != nil {
		return StatusResult{}, err
	}
	return StatusResult{Online: online, Offline: offline, Total: total, ActiveBots: ch.ActiveBots}, nil
}
