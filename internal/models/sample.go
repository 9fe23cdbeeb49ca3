// Package models contains the core data structures for Hermetia.
package models

import (
	"fmt"
	"time"
)

// MetricKind identifies which environmental quantity a reading measures.
type MetricKind string

const (
	MetricTemperature MetricKind = "temperature"
	MetricHumidity    MetricKind = "humidity"
)

// ParseMetricKind converts a string to MetricKind.
// The legacy Spanish names are accepted as aliases.
func ParseMetricKind(s string) (MetricKind, error) {
	switch s {
	case "temperature", "temperatura":
		return MetricTemperature, nil
	case "humidity", "humedad":
		return MetricHumidity, nil
	default:
		return "", fmt.Errorf("unknown metric kind %q", s)
	}
}

// Valid reports whether m is a known metric kind.
func (m MetricKind) Valid() bool {
	return m == MetricTemperature || m == MetricHumidity
}

// Unit returns the display unit for the metric.
func (m MetricKind) Unit() string {
	if m == MetricTemperature {
		return "°C"
	}
	return "%"
}

// SensorSample is a single reading from one sensor component.
// Samples are immutable once written.
type SensorSample struct {
	Timestamp   time.Time  `json:"timestamp"`
	ComponentID int        `json:"component_id"`
	Metric      MetricKind `json:"metric"`
	Value       float64    `json:"value"`
}
