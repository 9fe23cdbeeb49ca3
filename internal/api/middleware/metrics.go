package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/hermetia/internal/metrics"
)

// DegradedHeader is set by handlers that answer 200 with partial data, such
// as an empty series after a failed sample read or a feed missing a source.
const DegradedHeader = "X-Hermetia-Degraded"

// MarkDegraded flags the response as served with partial data.
// It must be called before the body is written.
func MarkDegraded(w http.ResponseWriter) {
	w.Header().Set(DegradedHeader, "1")
}

// Route groups used as a metrics label.
const (
	GroupIngest    = "ingest"
	GroupDashboard = "dashboard"
	GroupAlerts    = "alerts"
	GroupConfig    = "config"
	GroupHealth    = "health"
	GroupOther     = "other"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// PrometheusMiddleware records request counts and latency per route group,
// and counts degraded responses per route.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := routePattern(r)
		group := RouteGroup(route)

		metrics.HTTPRequestsTotal.WithLabelValues(group, r.Method, route, strconv.Itoa(sw.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(group, r.Method).Observe(time.Since(start).Seconds())

		if sw.status == http.StatusOK && sw.Header().Get(DegradedHeader) != "" {
			metrics.HTTPDegradedResponses.WithLabelValues(route).Inc()
		}
	})
}

// RouteGroup maps a route pattern to its group label.
func RouteGroup(route string) string {
	rest, ok := strings.CutPrefix(route, "/api/v1/")
	if !ok {
		if strings.HasPrefix(route, "/health") {
			return GroupHealth
		}
		return GroupOther
	}
	section, _, _ := strings.Cut(rest, "/")
	switch section {
	case "readings", "activations":
		return GroupIngest
	case "dashboard", "components":
		return GroupDashboard
	case "alerts":
		return GroupAlerts
	case "thresholds":
		return GroupConfig
	default:
		return GroupOther
	}
}

// routePattern keeps label cardinality bounded: unmatched paths collapse
// to a single value instead of the raw URL.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
