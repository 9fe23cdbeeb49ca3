package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func TestRouteGroup(t *testing.T) {
	tests := []struct {
		route string
		want  string
	}{
		{"/api/v1/readings", GroupIngest},
		{"/api/v1/activations", GroupIngest},
		{"/api/v1/dashboard/historical", GroupDashboard},
		{"/api/v1/components/{id}", GroupDashboard},
		{"/api/v1/alerts/history", GroupAlerts},
		{"/api/v1/thresholds", GroupConfig},
		{"/health/ready", GroupHealth},
		{"/api/v1/unknown", GroupOther},
		{"unmatched", GroupOther},
	}
	for _, tt := range tests {
		if got := RouteGroup(tt.route); got != tt.want {
			t.Errorf("RouteGroup(%q) = %q, want %q", tt.route, got, tt.want)
		}
	}
}

// counterValue reads one labelled sample from the default registry.
func counterValue(t *testing.T, name, label, value string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestPrometheusMiddleware_CountsDegradedResponses(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMiddleware)
	r.Get("/api/v1/dashboard/historical", func(w http.ResponseWriter, r *http.Request) {
		MarkDegraded(w)
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/api/v1/alerts/active", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	const degraded = "hermetia_http_degraded_responses_total"
	before := counterValue(t, degraded, "route", "/api/v1/dashboard/historical")
	beforeRequests := counterValue(t, "hermetia_http_requests_total", "group", GroupAlerts)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/dashboard/historical", nil))
	if rec.Header().Get(DegradedHeader) != "1" {
		t.Error("degraded header not set")
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/alerts/active", nil))

	if got := counterValue(t, degraded, "route", "/api/v1/dashboard/historical") - before; got != 1 {
		t.Errorf("degraded responses delta = %v, want 1", got)
	}
	if got := counterValue(t, degraded, "route", "/api/v1/alerts/active"); got != 0 {
		t.Errorf("healthy route counted as degraded: %v", got)
	}
	if got := counterValue(t, "hermetia_http_requests_total", "group", GroupAlerts) - beforeRequests; got != 1 {
		t.Errorf("alerts group requests delta = %v, want 1", got)
	}
}
