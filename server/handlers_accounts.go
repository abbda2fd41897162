package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/onnwee/bot-tender/backend/store"
	"github.com/onnwee/bot-tender/backend/telemetry"
)

// accountView is the JSON shape the dashboard consumes.
type accountView struct {
	ID                int        `json:"id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	Status            string     `json:"status"`
	AssignedChannelID *int       `json:"assignedChannelId"`
	ActiveOnChannel   bool       `json:"isActiveOnChannel"`
	ConnectionStatus  string     `json:"connectionStatus"`
	CreatedAt         time.Time  `json:"createdAt"`
	LastUsed          *time.Time `json:"lastUsed"`
}

func toAccountView(a store.Account) accountView {
	v := accountView{
		ID:              a.ID,
		Username:        a.Username,
		Email:           a.Email,
		Status:          a.Status,
		ActiveOnChannel: a.ActiveOnChannel,
		CreatedAt:       a.CreatedAt,
	}
	if a.AssignedChannelID.Valid {
		id := int(a.AssignedChannelID.Int64)
		v.AssignedChannelID = &id
	}
	if a.ConnectionStatus.Valid {
		v.ConnectionStatus = a.ConnectionStatus.String
	}
	if a.LastUsed.Valid {
		t := a.LastUsed.Time
		v.LastUsed = &t
	}
	return v
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req registerRequest) validate() string {
	if strings.TrimSpace(req.Username) == "" {
		return "username is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		return "email is required"
	}
	if req.Password == "" {
		return "password is required"
	}
	return ""
}

// handleRegister creates a single bot account.
// POST /accounts or POST /api?action=register
func (h *Handlers) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	id, err := store.RegisterAccount(r.Context(), h.db, req.Username, req.Email, req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	store.AppendLog(r.Context(), h.db, id, store.LogSuccess, "account registered: "+req.Username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "account registered",
		"accountId": id,
	})
}

type bulkRegisterRequest struct {
	Prefix      string `json:"prefix"`
	Count       int    `json:"count"`
	EmailDomain string `json:"emailDomain"`
	Password    string `json:"password"`
}

// handleBulkRegister creates count accounts named prefix<N>, continuing from
// the highest existing numeric suffix. Creation is sequential: a duplicate
// skips that name and moves on, any other error aborts the batch with the
// accounts created so far reported.
// POST /accounts/bulk or POST /api?action=bulk-register
func (h *Handlers) handleBulkRegister(w http.ResponseWriter, r *http.Request) {
	var req bulkRegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Prefix) == "" {
		writeError(w, http.StatusBadRequest, "prefix is required")
		return
	}
	if req.Count < 1 || req.Count > 500 {
		writeError(w, http.StatusBadRequest, "count must be between 1 and 500")
		return
	}
	if req.EmailDomain == "" {
		req.EmailDomain = "bots.local"
	}
	if req.Password == "" {
		req.Password = "botpass123"
	}

	next, err := store.NextSuffix(r.Context(), h.db, req.Prefix)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var created []string
	failed := 0
	for i := 0; i < req.Count; i++ {
		username := req.Prefix + strconv.Itoa(next+i)
		email := username + "@" + req.EmailDomain
		if _, err := store.RegisterAccount(r.Context(), h.db, username, email, req.Password); err != nil {
			if err == store.ErrConflict {
				failed++
				continue
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		created = append(created, username)
	}
	store.AppendLog(r.Context(), h.db, 0, store.LogInfo,
		"bulk registered "+strconv.Itoa(len(created))+" accounts with prefix "+req.Prefix)
	writeJSON(w, http.StatusOK, map[string]any{
		"created":  len(created),
		"failed":   failed,
		"accounts": created,
	})
}

// handleAccountsList returns all accounts plus aggregate status counts.
// GET /accounts or GET /api?action=list
func (h *Handlers) handleAccountsList(w http.ResponseWriter, r *http.Request) {
	accounts, stats, err := store.ListAccounts(r.Context(), h.db)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, toAccountView(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accounts": views,
		"stats":    stats,
	})
}

type banRequest struct {
	ID int `json:"id"`
}

// handleBan marks an account banned. Ban is terminal and does not detach the
// account from its channel row counters until the next recompute.
// DELETE /accounts or DELETE /api
func (h *Handlers) handleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ID <= 0 {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	username, err := store.BanAccount(r.Context(), h.db, req.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	store.AppendLog(r.Context(), h.db, req.ID, store.LogError, "account banned: "+username)
	telemetry.LoggerWithCorr(r.Context()).Info("account banned", "account_id", req.ID, "username", username)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "account " + username + " banned",
	})
}

// handleLogs returns recent registration and moderation log entries.
// GET /logs or GET /api?action=logs
func (h *Handlers) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	logs, err := store.RecentLogs(r.Context(), h.db, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
