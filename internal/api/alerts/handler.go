// Package alerts serves the merged alert feed.
package alerts

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/alerting"
	"github.com/good-yellow-bee/hermetia/internal/api/middleware"
	"github.com/good-yellow-bee/hermetia/internal/models"
)

// Response helpers
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const errCodeBadRequest = "BAD_REQUEST"

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Feeds produces alert feeds. *alerting.Aggregator implements it.
type Feeds interface {
	Active(ctx context.Context, now time.Time) *alerting.Feed
	History(ctx context.Context, now time.Time, limit, offset int) *alerting.Feed
	Feed(ctx context.Context, q alerting.Query) *alerting.Feed
}

// FeedResponse is a feed page plus the paging that produced it.
type FeedResponse struct {
	*alerting.Feed
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Handler handles alert endpoints.
type Handler struct {
	feeds Feeds
	now   func() time.Time
}

// NewHandler creates an alert handler reading from feeds.
func NewHandler(feeds Feeds) *Handler {
	return &Handler{feeds: feeds, now: time.Now}
}

// Active returns every alert from the last 24 hours. Sources that could not
// be read are counted in failed_sources; the request itself still succeeds.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	feed := h.feeds.Active(r.Context(), h.now())
	jsonOK(w, &FeedResponse{Feed: withAlerts(w, feed)})
}

// History returns a page of the last 30 days of alerts.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, ok := intParam(w, q.Get("limit"), "limit")
	if !ok {
		return
	}
	offset, ok := intParam(w, q.Get("offset"), "offset")
	if !ok {
		return
	}

	limit = alerting.ClampHistoryLimit(limit)
	feed := h.feeds.History(r.Context(), h.now(), limit, offset)
	jsonOK(w, &FeedResponse{Feed: withAlerts(w, feed), Limit: limit, Offset: offset})
}

// Breaches lists recent threshold breach alerts only, newest first.
func (h *Handler) Breaches(w http.ResponseWriter, r *http.Request) {
	limit, ok := intParam(w, r.URL.Query().Get("limit"), "limit")
	if !ok {
		return
	}

	limit = alerting.ClampHistoryLimit(limit)
	feed := h.feeds.Feed(r.Context(), alerting.Query{
		Since: h.now().AddDate(0, 0, -alerting.HistoryDays),
		Limit: limit,
		Kinds: []models.SourceKind{models.SourceThreshold},
	})
	jsonOK(w, &FeedResponse{Feed: withAlerts(w, feed), Limit: limit})
}

// intParam parses an optional non-negative integer query parameter.
// An absent value is zero.
func intParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}

// withAlerts makes an empty feed encode as [] rather than null and flags
// the response when a source or the component lookup failed.
func withAlerts(w http.ResponseWriter, feed *alerting.Feed) *alerting.Feed {
	if feed.FailedSources > 0 || feed.LookupFailed {
		middleware.MarkDegraded(w)
	}
	if feed.Alerts == nil {
		feed.Alerts = []*models.Alert{}
	}
	return feed
}
