package models

import (
	"fmt"
	"time"
)

// Condition describes which side of a threshold a breach fell on.
type Condition string

const (
	ConditionAbove Condition = "above"
	ConditionBelow Condition = "below"
)

// ParseCondition converts a string to Condition.
// The legacy "mayor"/"menor" values are accepted as aliases.
func ParseCondition(s string) (Condition, error) {
	switch s {
	case "above", "mayor":
		return ConditionAbove, nil
	case "below", "menor":
		return ConditionBelow, nil
	default:
		return "", fmt.Errorf("unknown condition %q", s)
	}
}

// Valid reports whether c is a known condition.
func (c Condition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Event is a raw entry from one of the append-only alert sources.
// It is implemented only by *ThresholdBreachEvent and *ActuatorActivationEvent.
type Event interface {
	EventID() string
	OccurredAt() time.Time
	event()
}

// ThresholdBreachEvent records a sample that fell outside its configured bounds.
type ThresholdBreachEvent struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Metric      MetricKind `json:"metric"`
	Value       float64    `json:"value"`
	Threshold   float64    `json:"threshold"`
	Condition   Condition  `json:"condition"`
	ComponentID int        `json:"component_id"`
}

func (e *ThresholdBreachEvent) EventID() string       { return e.ID }
func (e *ThresholdBreachEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *ThresholdBreachEvent) event()                {}

// ActuatorActivationEvent records an actuator being switched on.
type ActuatorActivationEvent struct {
	ID                  string    `json:"id"`
	Timestamp           time.Time `json:"timestamp"`
	ActuatorComponentID int       `json:"actuator_component_id"`
}

func (e *ActuatorActivationEvent) EventID() string       { return e.ID }
func (e *ActuatorActivationEvent) OccurredAt() time.Time { return e.Timestamp }
func (e *ActuatorActivationEvent) event()                {}
