package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/good-yellow-bee/hermetia/internal/metrics"
	"github.com/good-yellow-bee/hermetia/internal/models"
)

const backendSQLite = "sqlite"

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	samples     *sqliteSampleRepo
	breaches    *sqliteBreachRepo
	activations *sqliteActivationRepo
	components  *sqliteComponentRepo
	thresholds  *sqliteThresholdRepo
}

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	if s.path == "" {
		return fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", "file:"+s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db

	s.samples = &sqliteSampleRepo{db: db}
	s.breaches = &sqliteBreachRepo{db: db}
	s.activations = &sqliteActivationRepo{db: db}
	s.components = &sqliteComponentRepo{db: db}
	s.thresholds = &sqliteThresholdRepo{db: db}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Ping checks the connection health.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// EnsureComponents registers the given components if none exist yet.
func (s *SQLiteStorage) EnsureComponents(ctx context.Context, components []*models.Component) error {
	existing, err := s.Components().List(ctx)
	if err != nil {
		return fmt.Errorf("list components: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	for _, c := range components {
		if err := s.Components().Upsert(ctx, c); err != nil {
			return fmt.Errorf("register component %d: %w", c.ID, err)
		}
	}
	if len(components) > 0 {
		log.Printf("registered %d components", len(components))
	}
	return nil
}

// Samples returns the sample repository.
func (s *SQLiteStorage) Samples() SampleRepository {
	return s.samples
}

// Breaches returns the threshold breach repository.
func (s *SQLiteStorage) Breaches() BreachRepository {
	return s.breaches
}

// Activations returns the actuator activation repository.
func (s *SQLiteStorage) Activations() ActivationRepository {
	return s.activations
}

// Components returns the component repository.
func (s *SQLiteStorage) Components() ComponentRepository {
	return s.components
}

// Thresholds returns the threshold repository.
func (s *SQLiteStorage) Thresholds() ThresholdRepository {
	return s.thresholds
}

// observe records query latency and errors for one storage operation.
func observe(operation, backend string, start time.Time, err error) {
	metrics.StorageQueryDuration.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StorageErrors.WithLabelValues(operation, backend).Inc()
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
