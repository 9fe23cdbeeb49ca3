package models

import "fmt"

// ComponentKind separates sensors from actuators.
type ComponentKind string

const (
	ComponentSensor   ComponentKind = "sensor"
	ComponentActuator ComponentKind = "actuator"
)

// ParseComponentKind converts a string to ComponentKind.
func ParseComponentKind(s string) (ComponentKind, error) {
	switch s {
	case "sensor":
		return ComponentSensor, nil
	case "actuator", "actuador":
		return ComponentActuator, nil
	default:
		return "", fmt.Errorf("unknown component kind %q", s)
	}
}

// Component is an addressable physical unit of the incubator.
type Component struct {
	ID          int           `json:"id"`
	DisplayName string        `json:"display_name"`
	Kind        ComponentKind `json:"kind"`
	Active      bool          `json:"active"`
}
