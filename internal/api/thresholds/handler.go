// Package thresholds serves the incubator's environmental bounds.
package thresholds

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/storage"
)

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

// Handler handles threshold endpoints.
type Handler struct {
	repo storage.ThresholdRepository
	now  func() time.Time
}

func NewHandler(repo storage.ThresholdRepository) *Handler {
	return &Handler{repo: repo, now: time.Now}
}

// UpdateRequest replaces the whole configuration. Every field is required.
type UpdateRequest struct {
	TempMin              *float64                    `json:"temp_min"`
	TempMax              *float64                    `json:"temp_max"`
	HumidityMin          *float64                    `json:"humidity_min"`
	HumidityMax          *float64                    `json:"humidity_max"`
	NotificationsEnabled *models.NotificationToggles `json:"notifications_enabled"`
}

func (req *UpdateRequest) config() (*models.ThresholdConfig, string) {
	switch {
	case req.TempMin == nil:
		return nil, "temp_min is required"
	case req.TempMax == nil:
		return nil, "temp_max is required"
	case req.HumidityMin == nil:
		return nil, "humidity_min is required"
	case req.HumidityMax == nil:
		return nil, "humidity_max is required"
	case req.NotificationsEnabled == nil:
		return nil, "notifications_enabled is required"
	}
	return &models.ThresholdConfig{
		TempMin:              *req.TempMin,
		TempMax:              *req.TempMax,
		HumidityMin:          *req.HumidityMin,
		HumidityMax:          *req.HumidityMax,
		NotificationsEnabled: *req.NotificationsEnabled,
	}, ""
}

// Get returns the current configuration, or the defaults before the first save.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.repo.Get(r.Context())
	if err != nil {
		log.Printf("get thresholds error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, cfg)
}

// Update validates and saves a new configuration. Inverted ranges are rejected.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	cfg, problem := req.config()
	if problem != "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, problem)
		return
	}
	if err := cfg.Validate(); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	cfg.UpdatedAt = h.now().UTC()

	if err := h.repo.Save(r.Context(), cfg); err != nil {
		if errors.Is(err, models.ErrInvertedTemperatureRange) || errors.Is(err, models.ErrInvertedHumidityRange) ||
			errors.Is(err, models.ErrNonFiniteThreshold) {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		log.Printf("save thresholds error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, cfg)
}
