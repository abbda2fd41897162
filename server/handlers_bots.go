package server

import (
	"net/http"

	"github.com/onnwee/bot-tender/backend/store"
)

type assignBotsRequest struct {
	ChannelID int `json:"channelId"`
	Count     int `json:"count"`
}

// handleAssignBots attaches idle accounts to a channel.
// POST /bots/assign or POST /api?action=assign-bots
func (h *Handlers) handleAssignBots(w http.ResponseWriter, r *http.Request) {
	var req assignBotsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ChannelID <= 0 {
		writeError(w, http.StatusBadRequest, "channelId is required")
		return
	}
	if req.Count <= 0 {
		writeError(w, http.StatusBadRequest, "count must be positive")
		return
	}
	res, err := h.orch.Assign(r.Context(), req.ChannelID, req.Count)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type startBotsRequest struct {
	ChannelID int  `json:"channelId"`
	UseAI     bool `json:"useAi"`
}

// handleStartBots brings the channel's assigned bots online and posts their
// opening messages.
// POST /bots/start or POST /api?action=start-bots
func (h *Handlers) handleStartBots(w http.ResponseWriter, r *http.Request) {
	var req startBotsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ChannelID <= 0 {
		writeError(w, http.StatusBadRequest, "channelId is required")
		return
	}
	res, err := h.orch.Start(r.Context(), req.ChannelID, req.UseAI)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type stopBotsRequest struct {
	ChannelID int `json:"channelId"`
}

// handleStopBots closes active sessions for the channel. Idempotent: stopping
// an already-stopped channel reports stopped=0.
// POST /bots/stop or POST /api?action=stop-bots
func (h *Handlers) handleStopBots(w http.ResponseWriter, r *http.Request) {
	var req stopBotsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ChannelID <= 0 {
		writeError(w, http.StatusBadRequest, "channelId is required")
		return
	}
	res, err := h.orch.Stop(r.Context(), req.ChannelID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleBotStatus reports live connection counts for a channel.
// GET /bots/status?channelId=N or GET /api?action=bot-status&channelId=N
func (h *Handlers) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	channelID := queryInt(r, "channelId", 0)
	if channelID <= 0 {
		writeError(w, http.StatusBadRequest, "channelId is required")
		return
	}
	res, err := h.orch.Status(r.Context(), channelID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleChatMessages returns the newest generated messages for a channel.
// GET /chat/messages?channelId=N or GET /api?action=chat-messages&channelId=N
func (h *Handlers) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	channelID := queryInt(r, "channelId", 0)
	if channelID <= 0 {
		writeError(w, http.StatusBadRequest, "channelId is required")
		return
	}
	limit := queryInt(r, "limit", 50)
	msgs, err := store.RecentMessages(r.Context(), h.db, channelID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

// handleBotConfig reads or replaces the per-channel bot behavior settings.
// GET|POST /bots/config or GET|POST /api?action=bot-config
func (h *Handlers) handleBotConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		channelID := queryInt(r, "channelId", 0)
		if channelID <= 0 {
			writeError(w, http.StatusBadRequest, "channelId is required")
			return
		}
		cfg, err := store.GetBotConfig(r.Context(), h.db, channelID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case http.MethodPost:
		var cfg store.BotConfig
		if !decodeBody(w, r, &cfg) {
			return
		}
		if cfg.ChannelID <= 0 {
			writeError(w, http.StatusBadRequest, "channelId is required")
			return
		}
		if err := cfg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := store.PutBotConfig(r.Context(), h.db, cfg); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}
