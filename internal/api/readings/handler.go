// Package readings accepts sensor readings and actuator activations over HTTP
// for devices that cannot speak MQTT.
package readings

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/ingest"
	"github.com/good-yellow-bee/hermetia/internal/models"
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

// maxBodyBytes bounds a single reading payload.
const maxBodyBytes = 4 << 10

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Handler handles ingestion endpoints.
type Handler struct {
	recorder ingest.Recorder
	now      func() time.Time
}

func NewHandler(recorder ingest.Recorder) *Handler {
	return &Handler{recorder: recorder, now: time.Now}
}

// ReadingRequest is one sensor reading. Timestamp defaults to the time of receipt.
type ReadingRequest struct {
	ComponentID int        `json:"component_id"`
	Metric      string     `json:"metric"`
	Value       *float64   `json:"value"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// ReadingResponse echoes the stored sample and any breach it caused.
type ReadingResponse struct {
	Sample *models.SensorSample         `json:"sample"`
	Breach *models.ThresholdBreachEvent `json:"breach"`
}

// ActivationRequest is one actuator switching on.
type ActivationRequest struct {
	ComponentID int        `json:"component_id"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// CreateReading stores a reading and evaluates it against the thresholds.
func (h *Handler) CreateReading(w http.ResponseWriter, r *http.Request) {
	var req ReadingRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Value == nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "value is required")
		return
	}
	metric, err := models.ParseMetricKind(req.Metric)
	if err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	sample := &models.SensorSample{
		Timestamp:   h.stamp(req.Timestamp),
		ComponentID: req.ComponentID,
		Metric:      metric,
		Value:       *req.Value,
	}
	breach, err := h.recorder.RecordSample(r.Context(), sample, ingest.TransportHTTP)
	if !h.handleErr(w, "record reading", err) {
		return
	}
	jsonCreated(w, &ReadingResponse{Sample: sample, Breach: breach})
}

// CreateActivation records an actuator activation.
func (h *Handler) CreateActivation(w http.ResponseWriter, r *http.Request) {
	var req ActivationRequest
	if !decode(w, r, &req) {
		return
	}

	e := &models.ActuatorActivationEvent{
		Timestamp:           h.stamp(req.Timestamp),
		ActuatorComponentID: req.ComponentID,
	}
	err := h.recorder.RecordActivation(r.Context(), e, ingest.TransportHTTP)
	if !h.handleErr(w, "record activation", err) {
		return
	}
	jsonCreated(w, e)
}

func (h *Handler) stamp(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return h.now().UTC()
	}
	return t.UTC()
}

// handleErr writes the response for a failed record and reports whether
// the caller may continue.
func (h *Handler) handleErr(w http.ResponseWriter, op string, err error) bool {
	if err == nil {
		return true
	}
	var invalid *ingest.InvalidInputError
	if errors.As(err, &invalid) {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, invalid.Reason)
		return false
	}
	log.Printf("%s error: %v", op, err)
	jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
	return false
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return false
	}
	return true
}
