package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/onnwee/bot-tender/backend/store"
)

var startTime = time.Now()

// handleHealthz is a liveness probe: the process is up.
func (h *Handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz is a readiness probe: the database answers a ping.
func (h *Handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	// Schema must be applied before the service can serve traffic.
	var one int
	if err := h.db.QueryRowContext(r.Context(), `SELECT 1 FROM accounts LIMIT 1`).Scan(&one); err != nil && err != sql.ErrNoRows {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleStatus reports service identity, uptime, and aggregate counts.
func (h *Handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	db := "ok"
	if err := h.db.PingContext(r.Context()); err != nil {
		db = "error: " + err.Error()
	}
	out := map[string]any{
		"service":  "bot-tender",
		"uptime":   time.Since(startTime).Round(time.Second).String(),
		"database": db,
	}
	var channels, onlineBots, messages int
	row := h.db.QueryRowContext(r.Context(), `
		SELECT (SELECT COUNT(*) FROM channels),
		       (SELECT COUNT(*) FROM accounts WHERE connection_status='online'),
		       (SELECT COUNT(*) FROM chat_messages)`)
	if err := row.Scan(&channels, &onlineBots, &messages); err == nil {
		out["channels"] = channels
		out["onlineBots"] = onlineBots
		out["messagesPosted"] = messages
	}
	if _, stats, err := store.ListAccounts(r.Context(), h.db); err == nil {
		out["accounts"] = stats
	}
	writeJSON(w, http.StatusOK, out)
}
