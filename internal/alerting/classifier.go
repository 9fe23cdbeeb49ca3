// Package alerting classifies incubator events into alerts and merges the
// alert sources into a single time-ordered feed.
package alerting

import (
	"fmt"
	"strconv"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// ValidationError reports an event field holding an unknown enum value.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// Components maps component ids to their lookup records.
// A nil map is valid and resolves every id to a placeholder name.
type Components map[int]*models.Component

func (c Components) name(id int, fallback string) string {
	if comp, ok := c[id]; ok && comp.DisplayName != "" {
		return comp.DisplayName
	}
	return fmt.Sprintf("%s %d", fallback, id)
}

// Classify dispatches on the event type.
func Classify(ev models.Event, components Components) (*models.Alert, error) {
	switch e := ev.(type) {
	case *models.ThresholdBreachEvent:
		return ClassifyBreach(e, components)
	case *models.ActuatorActivationEvent:
		return ClassifyActivation(e, components), nil
	default:
		return nil, &ValidationError{Field: "event type", Value: fmt.Sprintf("%T", ev)}
	}
}

// ClassifyBreach turns a threshold breach into an alert.
//
// Every temperature breach is critical and every humidity breach is a
// warning, whichever side of the threshold it fell on. Notification toggles
// do not affect classification; see ShouldNotify.
func ClassifyBreach(e *models.ThresholdBreachEvent, components Components) (*models.Alert, error) {
	var severity models.Severity
	var label string
	switch e.Metric {
	case models.MetricTemperature:
		severity, label = models.SeverityCritical, "Temperature"
	case models.MetricHumidity:
		severity, label = models.SeverityWarning, "Humidity"
	default:
		return nil, &ValidationError{Field: "metric", Value: string(e.Metric)}
	}
	if !e.Condition.Valid() {
		return nil, &ValidationError{Field: "condition", Value: string(e.Condition)}
	}

	unit := e.Metric.Unit()
	return &models.Alert{
		ID:        string(models.SourceThreshold) + ":" + e.ID,
		Timestamp: e.Timestamp,
		Severity:  severity,
		Message: fmt.Sprintf("%s %s threshold: %s%s (limit: %s%s)",
			label, e.Condition, formatValue(e.Value), unit, formatValue(e.Threshold), unit),
		ComponentID:   e.ComponentID,
		ComponentName: components.name(e.ComponentID, "Component"),
		SourceKind:    models.SourceThreshold,
		Metric:        e.Metric,
	}, nil
}

// ClassifyActivation turns an actuator activation into a warning alert.
func ClassifyActivation(e *models.ActuatorActivationEvent, components Components) *models.Alert {
	name := components.name(e.ActuatorComponentID, "Actuator")
	return &models.Alert{
		ID:            string(models.SourceActuator) + ":" + e.ID,
		Timestamp:     e.Timestamp,
		Severity:      models.SeverityWarning,
		Message:       name + " activated",
		ComponentID:   e.ActuatorComponentID,
		ComponentName: name,
		SourceKind:    models.SourceActuator,
	}
}

// formatValue prints the shortest decimal that round-trips, so 31 renders as "31".
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
