// Package telemetry provides Prometheus metrics and correlation-id aware
// logging helpers for the chat dispatch loop.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesReceived prometheus.Counter
	ResponsesSent    prometheus.Counter
	APICalls         prometheus.Counter
	ErrorsTotal      prometheus.Counter
	PollCycles       prometheus.Counter

	// Histograms (seconds)
	AssistantDuration prometheus.Observer

	// Gauges
	QuotaUsageGauge  prometheus.Gauge
	EconomyModeGauge prometheus.Gauge // 1=economy, 0=normal
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "ytbot_messages_received_total", Help: "Chat messages received after dedup"})
		ResponsesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "ytbot_responses_sent_total", Help: "Replies published into the chat"})
		APICalls = promauto.NewCounter(prometheus.CounterOpts{Name: "ytbot_api_calls_total", Help: "YouTube API calls issued"})
		ErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "ytbot_errors_total", Help: "Errors absorbed by the dispatch loop"})
		PollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "ytbot_poll_cycles_total", Help: "Dispatch cycles executed"})
		AssistantDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "ytbot_assistant_response_duration_seconds", Help: "Assistant exchange duration seconds", Buckets: prometheus.DefBuckets})
		QuotaUsageGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "ytbot_quota_usage_units", Help: "Metered quota units used today"})
		EconomyModeGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "ytbot_economy_mode", Help: "Economy mode active=1 normal=0"})
	})
}

// Guarded increment helpers so callers are safe before Init (tests).

func IncMessagesReceived() {
	if MessagesReceived != nil {
		MessagesReceived.Inc()
	}
}

func IncResponsesSent() {
	if ResponsesSent != nil {
		ResponsesSent.Inc()
	}
}

func IncAPICalls() {
	if APICalls != nil {
		APICalls.Inc()
	}
}

func IncErrors() {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc()
	}
}

func IncPollCycles() {
	if PollCycles != nil {
		PollCycles.Inc()
	}
}

// ObserveAssistantDuration records one assistant exchange duration.
func ObserveAssistantDuration(seconds float64) {
	if AssistantDuration != nil {
		AssistantDuration.Observe(seconds)
	}
}

// SetQuotaUsage records today's cumulative usage.
func SetQuotaUsage(units int) {
	if QuotaUsageGauge != nil {
		QuotaUsageGauge.Set(float64(units))
	}
}

// SetEconomyMode sets the mode gauge.
func SetEconomyMode(on bool) {
	if EconomyModeGauge != nil {
		if on {
			EconomyModeGauge.Set(1)
		} else {
			EconomyModeGauge.Set(0)
		}
	}
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

// LoggerWithCorr returns a logger carrying the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
