package models

import "time"

// Severity represents alert severity level.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// SourceKind identifies which event log an alert was derived from.
type SourceKind string

const (
	SourceThreshold SourceKind = "threshold"
	SourceActuator  SourceKind = "actuator"
)

// Alert is the unified, classified view of a breach or an activation.
// Alerts are built per request and never persisted.
type Alert struct {
	ID            string     `json:"id"`
	Timestamp     time.Time  `json:"timestamp"`
	Severity      Severity   `json:"severity"`
	Message       string     `json:"message"`
	ComponentID   int        `json:"component_id"`
	ComponentName string     `json:"component_name"`
	SourceKind    SourceKind `json:"source_kind"`
	Metric        MetricKind `json:"metric,omitempty"`
}
