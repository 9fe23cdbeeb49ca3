// Package metrics provides Prometheus metrics for Hermetia.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "hermetia"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts API requests by route group, route and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"group", "method", "route", "status"},
	)

	// HTTPRequestDuration tracks latency per route group. Device ingestion
	// and dashboard reads have very different profiles.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"group", "method"},
	)

	// HTTPRequestsInFlight tracks concurrent HTTP requests.
	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// HTTPDegradedResponses counts 200 responses served with partial data.
	HTTPDegradedResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "degraded_responses_total",
			Help:      "Total successful responses that carried partial data because a store read failed",
		},
		[]string{"route"},
	)
)

// Alert engine metrics
var (
	// AlignmentsDegraded counts dashboard series returned empty after a fetch failure.
	AlignmentsDegraded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "series",
			Name:      "degraded_total",
			Help:      "Total aligned series degraded to empty because a stream fetch failed",
		},
	)

	// FeedSourceFailures counts alert sources that were skipped in a feed.
	FeedSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "source_failures_total",
			Help:      "Total alert sources treated as empty because their fetch failed",
		},
		[]string{"source"},
	)

	// ComponentLookups counts batched component lookups.
	ComponentLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "component_lookups_total",
			Help:      "Total batched component lookups",
		},
		[]string{"result"}, // ok, error
	)

	// InvalidEvents counts stored events the classifier rejected.
	InvalidEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "invalid_events_total",
			Help:      "Total stored events skipped because they failed classification",
		},
	)
)

// Ingest metrics
var (
	// SamplesIngested counts stored sensor samples.
	SamplesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "samples_total",
			Help:      "Total sensor samples stored",
		},
		[]string{"metric", "transport"},
	)

	// BreachesRecorded counts threshold breaches written by the evaluator.
	BreachesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "breaches_total",
			Help:      "Total threshold breaches recorded",
		},
		[]string{"metric"},
	)

	// ActivationsRecorded counts actuator activations written.
	ActivationsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "activations_total",
			Help:      "Total actuator activations recorded",
		},
	)

	// IngestErrors counts rejected or failed ingest messages.
	IngestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "errors_total",
			Help:      "Total ingest messages that could not be stored",
		},
		[]string{"transport"},
	)
)

// Notification metrics
var (
	// NotificationsTotal counts push notification attempts.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "attempts_total",
			Help:      "Total notification attempts",
		},
		[]string{"result"}, // sent, suppressed, rate_limited, error
	)
)

// Storage metrics
var (
	// StorageQueryDuration tracks query latency.
	StorageQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "query_duration_seconds",
			Help:      "Storage query latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "backend"},
	)

	// StorageErrors counts storage operation errors.
	StorageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total storage operation errors",
		},
		[]string{"operation", "backend"},
	)
)

// Info metric
var (
	// BuildInfo exposes build information.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)
)

// SetBuildInfo sets the build info metric.
func SetBuildInfo(version, commit, buildTime string) {
	BuildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}
