// Package server exposes the HTTP API: typed routes per operation, a
// method+action compatibility dispatcher, health, status, and metrics. It
// includes permissive CORS for development and injects correlation IDs into
// request contexts for consistent logging.
package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/onnwee/bot-tender/backend/bots"
	"github.com/onnwee/bot-tender/backend/store"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	db   *sql.DB
	orch *bots.Orchestrator
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(db *sql.DB, orch *bots.Orchestrator) *Handlers {
	return &Handlers{db: db, orch: orch}
}

// writeJSON serializes v with the right content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the uniform {"error": "..."} body.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store-level errors onto the three-tier error model:
// conflicts are 400, unknown entities 404, everything else 500 with the raw
// error text.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusBadRequest, "username or email already in use")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON request body into v, reporting a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}
