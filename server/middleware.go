package server

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/bot-tender/backend/telemetry"
)

// corsConfig controls which origins may call the API. The default is
// permissive: browser dashboards running on any origin can talk to the
// backend during development.
type corsConfig struct {
	allowedOrigins []string
	allowAll       bool
}

func loadCORSConfig() corsConfig {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" || raw == "*" {
		return corsConfig{allowAll: true}
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return corsConfig{allowedOrigins: origins}
}

func (c corsConfig) originAllowed(origin string) bool {
	if c.allowAll {
		return true
	}
	for _, o := range c.allowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// withCORS wraps a handler with CORS headers and answers OPTIONS preflight
// requests with 204 and no body.
func withCORS(cfg corsConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && cfg.originAllowed(origin) {
			if cfg.allowAll {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status code for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestContext attaches a correlation ID to every request, logs the
// request outcome, and records a trace span around handler execution.
func withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := r.Header.Get("X-Correlation-Id")
		if corrID == "" {
			corrID = uuid.NewString()
		}
		ctx := telemetry.WithCorrelation(r.Context(), corrID)
		w.Header().Set("X-Correlation-Id", corrID)

		ctx, span := telemetry.StartSpan(ctx, "server", r.Method+" "+r.URL.Path,
			telemetry.HTTPMethodAttr(r.Method),
			telemetry.HTTPRouteAttr(r.URL.Path),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		telemetry.SetSpanHTTPStatus(span, rec.status)
		if rec.status >= 500 {
			span.SetStatus(telemetry.ErrorStatus("server error"))
		}
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"correlation_id", corrID,
		)
	})
}
