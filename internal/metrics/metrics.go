// Package metrics exposes Prometheus metrics for the memory subsystem:
// message throughput, safeguard activity, compression cycles, and storage
// health. Metrics are served by the gateway on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "keepsake"

var (
	// MessagesAppended counts messages accepted into the active session,
	// labelled by role.
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_appended_total",
			Help:      "Messages appended to the active session",
		},
		[]string{"role"},
	)

	// SafeguardFlagged counts messages withheld by the safeguard screen.
	SafeguardFlagged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safeguard_flagged_total",
			Help:      "Messages withheld by the safeguard screen",
		},
		[]string{"category"},
	)

	// SessionsEnded counts sessions moved to the pending queue.
	SessionsEnded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions closed and queued for compression",
		},
	)

	// CompressionRuns counts compression cycles by outcome
	// (success, noop, provider_error, malformed, storage_error).
	CompressionRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compression_runs_total",
			Help:      "Compression cycles by outcome",
		},
		[]string{"status"},
	)

	// CompressionDuration tracks end-to-end compression cycle duration,
	// dominated by the summarizer call.
	CompressionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_duration_seconds",
			Help:      "End-to-end compression cycle duration",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	// StorageErrors counts failed durable store operations by operation name.
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_errors_total",
			Help:      "Failed durable store operations",
		},
		[]string{"op"},
	)
)
