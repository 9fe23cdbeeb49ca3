package dashboard

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/storage"
)

// SensorsSummary is the component state panel of the dashboard.
type SensorsSummary struct {
	Sensors         []*models.Component `json:"sensors"`
	Actuators       []*models.Component `json:"actuators"`
	ActiveSensors   int                 `json:"active_sensors"`
	ActiveActuators int                 `json:"active_actuators"`
}

// UpdateComponentRequest toggles a component.
type UpdateComponentRequest struct {
	Active *bool `json:"active"`
}

// Sensors returns sensors and actuators with their on/off state.
func (h *Handler) Sensors(w http.ResponseWriter, r *http.Request) {
	list, err := h.components.List(r.Context())
	if err != nil {
		log.Printf("list components error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	summary := &SensorsSummary{
		Sensors:   []*models.Component{},
		Actuators: []*models.Component{},
	}
	for _, c := range list {
		switch c.Kind {
		case models.ComponentSensor:
			summary.Sensors = append(summary.Sensors, c)
			if c.Active {
				summary.ActiveSensors++
			}
		case models.ComponentActuator:
			summary.Actuators = append(summary.Actuators, c)
			if c.Active {
				summary.ActiveActuators++
			}
		}
	}
	jsonOK(w, summary)
}

// ListComponents returns every component ordered by id.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	list, err := h.components.List(r.Context())
	if err != nil {
		log.Printf("list components error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if list == nil {
		list = []*models.Component{}
	}
	jsonOK(w, list)
}

// UpdateComponent sets a component's active flag.
func (h *Handler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "component id must be a positive integer")
		return
	}

	var req UpdateComponentRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.Active == nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "active is required")
		return
	}

	ctx := r.Context()
	if err := h.components.SetActive(ctx, id, *req.Active); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "component not found")
			return
		}
		log.Printf("update component error: id=%d: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	c, err := h.components.GetByID(ctx, id)
	if err != nil {
		log.Printf("get component error: id=%d: %v", id, err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	jsonOK(w, c)
}
