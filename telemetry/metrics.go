// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SessionsStarted  prometheus.Counter
	SessionsStopped  prometheus.Counter
	MessagesPosted   prometheus.Counter
	AIMessages       prometheus.Counter
	FallbackMessages prometheus.Counter
	AnalysisCalls    prometheus.Counter
	AnalysisFailed   prometheus.Counter

	// Histograms (seconds)
	AnalysisDuration   prometheus.Observer
	StartBatchDuration prometheus.Observer

	// Gauges
	OnlineBotsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_sessions_started_total", Help: "Number of bot sessions opened"})
		SessionsStopped = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_sessions_stopped_total", Help: "Number of bot sessions closed"})
		MessagesPosted = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_posted_total", Help: "Number of chat messages posted"})
		AIMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_ai_total", Help: "Number of AI-generated chat messages"})
		FallbackMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_messages_fallback_total", Help: "Number of chat messages drawn from the static fallback pool"})
		AnalysisCalls = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_stream_analysis_total", Help: "Number of stream context analysis attempts"})
		AnalysisFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "bot_stream_analysis_failed_total", Help: "Number of stream context analyses that degraded to the generic fallback"})
		AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_stream_analysis_duration_seconds", Help: "Stream analysis duration seconds", Buckets: prometheus.DefBuckets})
		StartBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "bot_start_batch_duration_seconds", Help: "start-bots batch duration seconds", Buckets: prometheus.DefBuckets})
		OnlineBotsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "bot_online_total", Help: "Current number of online bots"})
	})
}

// SetOnlineBots records the current number of online bots.
func SetOnlineBots(n int) {
	if OnlineBotsGauge != nil {
		OnlineBotsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
