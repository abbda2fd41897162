package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/onnwee/bot-tender/backend/store"
)

type channelView struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	TargetViewers int        `json:"targetViewers"`
	ActiveBots    int        `json:"activeBots"`
	Status        string     `json:"status"`
	StreamContext string     `json:"streamContext,omitempty"`
	LastAnalysis  *time.Time `json:"lastAnalysisAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func toChannelView(c store.Channel) channelView {
	v := channelView{
		ID:            c.ID,
		Name:          c.Name,
		URL:           c.URL,
		TargetViewers: c.TargetViewers,
		ActiveBots:    c.ActiveBots,
		Status:        c.Status,
		CreatedAt:     c.CreatedAt,
	}
	if c.StreamContext.Valid {
		v.StreamContext = c.StreamContext.String
	}
	if c.LastAnalysis.Valid {
		t := c.LastAnalysis.Time
		v.LastAnalysis = &t
	}
	return v
}

type addChannelRequest struct {
	Name          string `json:"name"`
	URL           string `json:"url"`
	TargetViewers int    `json:"targetViewers"`
}

// handleAddChannel registers a target channel.
// POST /channels or POST /api?action=add-channel
func (h *Handlers) handleAddChannel(w http.ResponseWriter, r *http.Request) {
	var req addChannelRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "channel name is required")
		return
	}
	if req.URL == "" {
		req.URL = "https://twitch.tv/" + req.Name
	}
	id, err := store.AddChannel(r.Context(), h.db, req.Name, req.URL, req.TargetViewers)
	if err != nil {
		if err == store.ErrConflict {
			writeError(w, http.StatusBadRequest, "channel already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"channelId": id,
	})
}

// handleChannelsList returns all managed channels.
// GET /channels or GET /api?action=channels
func (h *Handlers) handleChannelsList(w http.ResponseWriter, r *http.Request) {
	channels, err := store.ListChannels(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]channelView, 0, len(channels))
	for _, c := range channels {
		views = append(views, toChannelView(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"channels": views})
}
