// Package health serves liveness and readiness for the incubator backend.
//
// Readiness distinguishes required dependencies (the SQLite event store and
// the sample store) from optional ones (the MQTT subscriber). A failing
// optional dependency leaves the service ready but degraded.
package health

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/good-yellow-bee/hermetia/pkg/config"
)

// Readiness states.
const (
	StatusReady    = "ready"
	StatusDegraded = "degraded"
	StatusNotReady = "not_ready"
)

const checkTimeout = 5 * time.Second

// Checker reports the health of one dependency.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

type registered struct {
	checker  Checker
	optional bool
}

// Handler serves the health endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []registered
	// failing remembers which dependencies failed on the last probe, so only
	// transitions are logged.
	failing map[string]bool
}

// NewHandler creates a health handler with no dependencies registered.
func NewHandler() *Handler {
	return &Handler{failing: make(map[string]bool)}
}

// RegisterChecker adds a dependency the service cannot serve without.
func (h *Handler) RegisterChecker(c Checker) {
	h.register(c, false)
}

// RegisterOptional adds a dependency whose failure degrades the service
// without taking it out of rotation.
func (h *Handler) RegisterOptional(c Checker) {
	h.register(c, true)
}

func (h *Handler) register(c Checker, optional bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, registered{checker: c, optional: optional})
}

// HealthResponse is the body of every health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Health reports the process is up along with its version.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: config.Version})
}

// Live is the liveness probe.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "live"})
}

// Ready probes every dependency concurrently. It answers 503 when a required
// dependency fails and 200 otherwise, with status degraded when only optional
// dependencies fail.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]registered, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	errs := make([]error, len(checkers))
	var wg sync.WaitGroup
	for i, rc := range checkers {
		i, rc := i, rc
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = rc.checker.Check(ctx)
		}()
	}
	wg.Wait()

	resp := HealthResponse{Status: StatusReady, Checks: make(map[string]string, len(checkers))}
	for i, rc := range checkers {
		name := rc.checker.Name()
		h.logTransition(name, errs[i])
		if errs[i] == nil {
			resp.Checks[name] = "ok"
			continue
		}
		resp.Checks[name] = errs[i].Error()
		switch {
		case !rc.optional:
			resp.Status = StatusNotReady
		case resp.Status == StatusReady:
			resp.Status = StatusDegraded
		}
	}

	status := http.StatusOK
	if resp.Status == StatusNotReady {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handler) logTransition(name string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	was := h.failing[name]
	switch {
	case err != nil && !was:
		log.Printf("readiness check error: %s: %v", name, err)
	case err == nil && was:
		log.Printf("readiness check recovered: %s", name)
	}
	h.failing[name] = err != nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
