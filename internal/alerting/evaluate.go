package alerting

import (
	"github.com/google/uuid"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// Evaluate checks a sample against the configured bounds and returns the
// breach it causes, or nil. A value equal to a bound is within range.
// The config must already be valid; inverted ranges are rejected on save.
func Evaluate(s *models.SensorSample, cfg *models.ThresholdConfig) (*models.ThresholdBreachEvent, error) {
	if !s.Metric.Valid() {
		return nil, &ValidationError{Field: "metric", Value: string(s.Metric)}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	min, max := cfg.Bounds(s.Metric)

	var cond models.Condition
	var threshold float64
	switch {
	case s.Value > max:
		cond, threshold = models.ConditionAbove, max
	case s.Value < min:
		cond, threshold = models.ConditionBelow, min
	default:
		return nil, nil
	}

	return &models.ThresholdBreachEvent{
		ID:          uuid.New().String(),
		Timestamp:   s.Timestamp,
		Metric:      s.Metric,
		Value:       s.Value,
		Threshold:   threshold,
		Condition:   cond,
		ComponentID: s.ComponentID,
	}, nil
}

// ShouldNotify reports whether an alert may be pushed to users.
// Breaches need the global toggle and their metric's toggle; actuator
// activations only need the global toggle.
func ShouldNotify(cfg *models.ThresholdConfig, a *models.Alert) bool {
	t := cfg.NotificationsEnabled
	if !t.Global {
		return false
	}
	if a.SourceKind != models.SourceThreshold {
		return true
	}
	switch a.Metric {
	case models.MetricTemperature:
		return t.Temperature
	case models.MetricHumidity:
		return t.Humidity
	default:
		return false
	}
}
