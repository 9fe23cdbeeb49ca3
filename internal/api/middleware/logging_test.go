package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		status  int
		logged  bool
	}{
		{"quiet success", false, http.StatusOK, false},
		{"quiet failure", false, http.StatusServiceUnavailable, true},
		{"verbose success", true, http.StatusOK, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			log.SetOutput(&buf)
			defer log.SetOutput(os.Stderr)

			var seenID string
			handler := RequestLogger(tc.verbose)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenID = GetRequestID(r.Context())
				w.WriteHeader(tc.status)
			}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/alerts/active", nil))

			id := rec.Header().Get("X-Request-ID")
			if len(id) != 8 || id != seenID {
				t.Errorf("request id header %q, context %q", id, seenID)
			}
			if got := strings.Contains(buf.String(), "GET /api/v1/alerts/active"); got != tc.logged {
				t.Errorf("logged = %v, want %v (%q)", got, tc.logged, buf.String())
			}
		})
	}
}
