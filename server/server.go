package server

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/bot-tender/backend/bots"
	"github.com/onnwee/bot-tender/backend/telemetry"
)

// operation binds an action name to the HTTP method it accepts and the typed
// handler that implements it. The dispatcher exists for clients built against
// the single-endpoint API; new clients should use the typed routes directly.
type operation struct {
	method  string
	handler http.HandlerFunc
}

func (h *Handlers) operations() map[string]operation {
	return map[string]operation{
		"register":      {http.MethodPost, h.handleRegister},
		"bulk-register": {http.MethodPost, h.handleBulkRegister},
		"list":          {http.MethodGet, h.handleAccountsList},
		"logs":          {http.MethodGet, h.handleLogs},
		"add-channel":   {http.MethodPost, h.handleAddChannel},
		"channels":      {http.MethodGet, h.handleChannelsList},
		"assign-bots":   {http.MethodPost, h.handleAssignBots},
		"start-bots":    {http.MethodPost, h.handleStartBots},
		"stop-bots":     {http.MethodPost, h.handleStopBots},
		"bot-status":    {http.MethodGet, h.handleBotStatus},
		"chat-messages": {http.MethodGet, h.handleChatMessages},
	}
}

// handleDispatch routes legacy /api?action=... requests onto the typed
// handlers. DELETE carries no action: it always means ban. bot-config is
// special-cased because it accepts both GET and POST.
func (h *Handlers) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodDelete {
		h.handleBan(w, r)
		return
	}
	action := r.URL.Query().Get("action")
	if action == "bot-config" {
		h.handleBotConfig(w, r)
		return
	}
	op, ok := h.operations()[action]
	if !ok || op.method != r.Method {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	op.handler(w, r)
}

// methodHandler restricts a typed route to one HTTP method.
func methodHandler(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		fn(w, r)
	}
}

// NewMux builds the full route table.
func NewMux(db *sql.DB, orch *bots.Orchestrator) http.Handler {
	telemetry.Init()
	h := NewHandlers(db, orch)
	mux := http.NewServeMux()

	// Legacy single-endpoint API.
	mux.HandleFunc("/api", h.handleDispatch)

	// Typed routes.
	mux.HandleFunc("/accounts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.handleAccountsList(w, r)
		case http.MethodPost:
			h.handleRegister(w, r)
		case http.MethodDelete:
			h.handleBan(w, r)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	})
	mux.HandleFunc("/accounts/bulk", methodHandler(http.MethodPost, h.handleBulkRegister))
	mux.HandleFunc("/logs", methodHandler(http.MethodGet, h.handleLogs))
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.handleChannelsList(w, r)
		case http.MethodPost:
			h.handleAddChannel(w, r)
		default:
			writeError(w, http.StatusNotFound, "not found")
		}
	})
	mux.HandleFunc("/bots/assign", methodHandler(http.MethodPost, h.handleAssignBots))
	mux.HandleFunc("/bots/start", methodHandler(http.MethodPost, h.handleStartBots))
	mux.HandleFunc("/bots/stop", methodHandler(http.MethodPost, h.handleStopBots))
	mux.HandleFunc("/bots/status", methodHandler(http.MethodGet, h.handleBotStatus))
	mux.HandleFunc("/bots/config", h.handleBotConfig)
	mux.HandleFunc("/chat/messages", methodHandler(http.MethodGet, h.handleChatMessages))

	// Operational endpoints.
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/readyz", h.handleReadyz)
	mux.HandleFunc("/status", h.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())

	return withCORS(loadCORSConfig(), withRequestContext(mux))
}

// Start runs the HTTP server until ctx is cancelled, then shuts down
// gracefully.
func Start(ctx context.Context, db *sql.DB, orch *bots.Orchestrator, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(db, orch),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		slog.Info("http server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
