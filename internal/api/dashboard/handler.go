// Package dashboard serves the incubator dashboard: the aligned
// temperature/humidity chart, its export, and component state.
package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/api/middleware"
	"github.com/good-yellow-bee/hermetia/internal/export"
	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/storage"
	"github.com/good-yellow-bee/hermetia/internal/timeseries"
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

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeStoreUnavailable = "STORE_UNAVAILABLE"
	errCodeInternalError    = "INTERNAL_ERROR"
)

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

// SeriesSource produces aligned series. *timeseries.Aligner implements it.
type SeriesSource interface {
	Series(ctx context.Context, token string, now time.Time) *models.Series
	Export(ctx context.Context, r timeseries.Range, now time.Time) ([]*models.AlignedPoint, error)
}

// Handler handles dashboard and component endpoints.
type Handler struct {
	series     SeriesSource
	components storage.ComponentRepository
	location   *time.Location
	now        func() time.Time
}

// NewHandler creates a dashboard handler. Exported timestamps are rendered
// in loc, or UTC when loc is nil.
func NewHandler(series SeriesSource, components storage.ComponentRepository, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		series:     series,
		components: components,
		location:   loc,
		now:        time.Now,
	}
}

// Historical returns the capped aligned series for ?range=24h|7d|30d.
// A store failure is reported through the degraded flag with a 200.
func (h *Handler) Historical(w http.ResponseWriter, r *http.Request) {
	series := h.series.Series(r.Context(), r.URL.Query().Get("range"), h.now())
	if series.Degraded {
		middleware.MarkDegraded(w)
	}
	jsonOK(w, series)
}

// Export streams every aligned point in the range as a CSV or JSON
// attachment. Unlike Historical, a store failure is an error.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng := timeseries.ParseRange(q.Get("range"))
	format, ok := export.ParseFormat(q.Get("format"))
	if !ok {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "format must be csv or json")
		return
	}

	points, err := h.series.Export(r.Context(), rng, h.now())
	if err != nil {
		log.Printf("export series error: range=%s: %v", rng, err)
		var unavailable *models.StoreUnavailableError
		if errors.As(err, &unavailable) {
			jsonError(w, http.StatusServiceUnavailable, errCodeStoreUnavailable, "sample store unavailable")
			return
		}
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	// Rendered up front so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := export.NewExporter(format, &buf, h.location).Export(points); err != nil {
		log.Printf("export render error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(rng, format)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("export write error: %v", err)
	}
}
