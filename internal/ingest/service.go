// Package ingest records incoming sensor readings and actuator activations,
// evaluates them against the thresholds and notifies operators.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/alerting"
	"github.com/good-yellow-bee/hermetia/internal/metrics"
	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/notifier"
	"github.com/good-yellow-bee/hermetia/internal/storage"
)

// Transport labels used in metrics and logs.
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"
)

// Dispatcher delivers an alert to the configured channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert) error
}

// Recorder is what transports feed. Service implements it.
type Recorder interface {
	RecordSample(ctx context.Context, s *models.SensorSample, transport string) (*models.ThresholdBreachEvent, error)
	RecordActivation(ctx context.Context, e *models.ActuatorActivationEvent, transport string) error
}

// InvalidInputError reports a reading or activation that cannot be stored.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// Service stores readings, records the breaches they cause and pushes
// notifications the thresholds allow.
type Service struct {
	samples     storage.SampleRepository
	breaches    storage.BreachRepository
	activations storage.ActivationRepository
	components  storage.ComponentRepository
	thresholds  storage.ThresholdRepository
	dispatcher  Dispatcher
	notifyTTL   time.Duration
}

// Config wires a Service.
type Config struct {
	Samples     storage.SampleRepository
	Breaches    storage.BreachRepository
	Activations storage.ActivationRepository
	Components  storage.ComponentRepository
	Thresholds  storage.ThresholdRepository
	// Dispatcher may be nil, in which case nothing is pushed.
	Dispatcher Dispatcher
	// NotifyTimeout bounds one notification (default: 10s).
	NotifyTimeout time.Duration
}

// NewService creates an ingest service.
func NewService(cfg Config) *Service {
	ttl := cfg.NotifyTimeout
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Service{
		samples:     cfg.Samples,
		breaches:    cfg.Breaches,
		activations: cfg.Activations,
		components:  cfg.Components,
		thresholds:  cfg.Thresholds,
		dispatcher:  cfg.Dispatcher,
		notifyTTL:   ttl,
	}
}

// RecordSample stores a reading and evaluates it. It returns the breach the
// reading caused, or nil.
func (s *Service) RecordSample(ctx context.Context, sample *models.SensorSample, transport string) (*models.ThresholdBreachEvent, error) {
	if err := validateSample(sample); err != nil {
		metrics.IngestErrors.WithLabelValues(transport).Inc()
		return nil, err
	}

	// Thresholds load before the insert: a failed call stores nothing.
	cfg, err := s.thresholds.Get(ctx)
	if err != nil {
		metrics.IngestErrors.WithLabelValues(transport).Inc()
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	if err := s.samples.Insert(ctx, sample); err != nil {
		metrics.IngestErrors.WithLabelValues(transport).Inc()
		return nil, fmt.Errorf("store sample: %w", err)
	}
	metrics.SamplesIngested.WithLabelValues(string(sample.Metric), transport).Inc()

	breach, err := alerting.Evaluate(sample, cfg)
	if err != nil {
		return nil, fmt.Errorf("evaluate sample: %w", err)
	}
	if breach == nil {
		return nil, nil
	}

	if err := s.breaches.Insert(ctx, breach); err != nil {
		return nil, fmt.Errorf("store breach: %w", err)
	}
	metrics.BreachesRecorded.WithLabelValues(string(breach.Metric)).Inc()

	components := s.component(ctx, breach.ComponentID)
	alert, err := alerting.ClassifyBreach(breach, components)
	if err != nil {
		return breach, fmt.Errorf("classify breach: %w", err)
	}
	s.notify(ctx, cfg, alert)

	return breach, nil
}

// RecordActivation stores an actuator activation and notifies if enabled.
func (s *Service) RecordActivation(ctx context.Context, e *models.ActuatorActivationEvent, transport string) error {
	if e.ActuatorComponentID <= 0 {
		metrics.IngestErrors.WithLabelValues(transport).Inc()
		return &InvalidInputError{Reason: "actuator component id must be positive"}
	}
	if e.Timestamp.IsZero() {
		metrics.IngestErrors.WithLabelValues(transport).Inc()
		return &InvalidInputError{Reason: "timestamp is required"}
	}

	if err := s.activations.Insert(ctx, e); err != nil {
		metrics.IngestErrors.WithLabelValues(transport).Inc()
		return fmt.Errorf("store activation: %w", err)
	}
	metrics.ActivationsRecorded.Inc()

	cfg, err := s.thresholds.Get(ctx)
	if err != nil {
		return fmt.Errorf("load thresholds: %w", err)
	}

	alert := alerting.ClassifyActivation(e, s.component(ctx, e.ActuatorComponentID))
	s.notify(ctx, cfg, alert)
	return nil
}

// component resolves one id for naming. A failed lookup falls back to the
// placeholder name.
func (s *Service) component(ctx context.Context, id int) alerting.Components {
	c, err := s.components.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("component lookup error: id=%d: %v", id, err)
		}
		return nil
	}
	return alerting.Components{id: c}
}

// notify pushes an alert when the toggles allow it. Delivery failures are
// logged and never fail the ingest.
func (s *Service) notify(ctx context.Context, cfg *models.ThresholdConfig, alert *models.Alert) {
	if s.dispatcher == nil {
		return
	}
	if !alerting.ShouldNotify(cfg, alert) {
		metrics.NotificationsTotal.WithLabelValues("suppressed").Inc()
		return
	}

	nctx, cancel := context.WithTimeout(ctx, s.notifyTTL)
	defer cancel()

	err := s.dispatcher.Dispatch(nctx, alert)
	switch {
	case err == nil:
		metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	case errors.Is(err, notifier.ErrRateLimited):
		metrics.NotificationsTotal.WithLabelValues("rate_limited").Inc()
	default:
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
		log.Printf("notify error: alert=%s: %v", alert.ID, err)
	}
}

func validateSample(s *models.SensorSample) error {
	if !s.Metric.Valid() {
		return &InvalidInputError{Reason: fmt.Sprintf("unknown metric %q", s.Metric)}
	}
	if s.ComponentID <= 0 {
		return &InvalidInputError{Reason: "component id must be positive"}
	}
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return &InvalidInputError{Reason: "value must be a finite number"}
	}
	if s.Timestamp.IsZero() {
		return &InvalidInputError{Reason: "timestamp is required"}
	}
	return nil
}
