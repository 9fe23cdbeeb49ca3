// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// Ping checks the connection health.
	Ping(ctx context.Context) error

	// Repository accessors
	Samples() SampleRepository
	Breaches() BreachRepository
	Activations() ActivationRepository
	Components() ComponentRepository
	Thresholds() ThresholdRepository
}

// SampleStorage is a dedicated time-series store for sensor samples.
// It is separate from Storage because samples are high-volume writes
// read back only by time range.
type SampleStorage interface {
	Open() error
	Close() error
	Migrate() error
	Ping(ctx context.Context) error

	Samples() SampleRepository
}

// SampleRepository stores sensor readings.
type SampleRepository interface {
	Insert(ctx context.Context, s *models.SensorSample) error
	// FetchSamples returns samples of one metric at or after since,
	// ordered by ascending timestamp.
	FetchSamples(ctx context.Context, metric models.MetricKind, since time.Time) ([]*models.SensorSample, error)
}

// BreachRepository is the append-only threshold breach log.
type BreachRepository interface {
	Insert(ctx context.Context, e *models.ThresholdBreachEvent) error
	// FetchThresholdBreaches returns breaches at or after since, newest first.
	// A limit of zero means no limit.
	FetchThresholdBreaches(ctx context.Context, since time.Time, limit int) ([]*models.ThresholdBreachEvent, error)
}

// ActivationRepository is the append-only actuator activation log.
type ActivationRepository interface {
	Insert(ctx context.Context, e *models.ActuatorActivationEvent) error
	// FetchActuatorActivations returns activations at or after since, newest first.
	// A limit of zero means no limit.
	FetchActuatorActivations(ctx context.Context, since time.Time, limit int) ([]*models.ActuatorActivationEvent, error)
}

// ComponentRepository manages the incubator's sensors and actuators.
type ComponentRepository interface {
	Upsert(ctx context.Context, c *models.Component) error
	GetByID(ctx context.Context, id int) (*models.Component, error)
	List(ctx context.Context) ([]*models.Component, error)
	SetActive(ctx context.Context, id int, active bool) error
	// FetchComponentsByIDs resolves many ids in one query. Unknown ids are
	// absent from the result.
	FetchComponentsByIDs(ctx context.Context, ids []int) (map[int]*models.Component, error)
}

// ThresholdRepository holds the single threshold configuration.
type ThresholdRepository interface {
	// Get returns the saved configuration, or the defaults if none was saved.
	Get(ctx context.Context) (*models.ThresholdConfig, error)
	Save(ctx context.Context, cfg *models.ThresholdConfig) error
}
