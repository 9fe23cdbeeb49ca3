package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

const backendClickHouse = "clickhouse"

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	// Addresses are the ClickHouse server addresses (host:port).
	Addresses []string

	// Database is the ClickHouse database name.
	Database string

	// Username for authentication.
	Username string

	// Password for authentication.
	Password string

	// MaxOpenConns is the maximum number of open connections.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int

	// DialTimeout is the connection timeout.
	DialTimeout time.Duration

	// Compression enables LZ4 compression.
	Compression bool

	// RetentionDays is the TTL in days for sample retention.
	RetentionDays int
}

// ClickHouseStorage implements SampleStorage for ClickHouse.
type ClickHouseStorage struct {
	config  *ClickHouseConfig
	db      *sql.DB
	samples *clickhouseSampleRepo
}

// NewClickHouseStorage creates a new ClickHouse storage.
func NewClickHouseStorage(config *ClickHouseConfig) *ClickHouseStorage {
	if config.MaxOpenConns == 0 {
		config.MaxOpenConns = 5
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 5
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = 5 * time.Second
	}
	if config.RetentionDays == 0 {
		// Longest dashboard range plus a margin.
		config.RetentionDays = 90
	}

	return &ClickHouseStorage{config: config}
}

// Open initializes the ClickHouse connection.
func (s *ClickHouseStorage) Open() error {
	opts := &clickhouse.Options{
		Addr: s.config.Addresses,
		Auth: clickhouse.Auth{
			Database: s.config.Database,
			Username: s.config.Username,
			Password: s.config.Password,
		},
		DialTimeout:  s.config.DialTimeout,
		MaxOpenConns: s.config.MaxOpenConns,
		MaxIdleConns: s.config.MaxIdleConns,
	}

	if s.config.Compression {
		opts.Compression = &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		}
	}

	db := clickhouse.OpenDB(opts)

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DialTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping clickhouse: %w", err)
	}

	s.db = db
	s.samples = &clickhouseSampleRepo{db: db}
	return nil
}

// Close closes the database connection.
func (s *ClickHouseStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the samples table if it doesn't exist.
func (s *ClickHouseStorage) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, samplesTableDDL(s.config.RetentionDays)); err != nil {
		return fmt.Errorf("create samples table: %w", err)
	}

	// Index creation is not supported by every server version.
	idx := "ALTER TABLE samples ADD INDEX IF NOT EXISTS idx_component component_id TYPE set(64) GRANULARITY 4"
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		log.Printf("warning: failed to create index: %v", err)
	}

	return nil
}

// Ping checks the connection health.
func (s *ClickHouseStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Samples returns the sample repository.
func (s *ClickHouseStorage) Samples() SampleRepository {
	return s.samples
}

// BatchWriter returns the repository's batch insert path for use with a SampleBuffer.
func (s *ClickHouseStorage) BatchWriter() SampleBatchWriter {
	return s.samples
}

func samplesTableDDL(retentionDays int) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS samples (
			timestamp DateTime64(3, 'UTC'),
			component_id Int32,
			metric LowCardinality(String),
			value Float64,
			_date Date DEFAULT toDate(timestamp)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMM(_date)
		ORDER BY (metric, timestamp)
		TTL _date + INTERVAL %d DAY DELETE
		SETTINGS index_granularity = 8192
	`, retentionDays)
}

// clickhouseSampleRepo implements SampleRepository for ClickHouse.
type clickhouseSampleRepo struct {
	db *sql.DB
}

// Insert writes one sample. High-rate writers should go through a SampleBuffer.
func (r *clickhouseSampleRepo) Insert(ctx context.Context, s *models.SensorSample) error {
	return r.InsertBatch(ctx, []*models.SensorSample{s})
}

// InsertBatch inserts multiple samples in one batch.
func (r *clickhouseSampleRepo) InsertBatch(ctx context.Context, samples []*models.SensorSample) (err error) {
	if len(samples) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("insert_samples", backendClickHouse, start, err) }(time.Now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO samples (timestamp, component_id, metric, value) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.ExecContext(ctx, s.Timestamp.UTC(), int32(s.ComponentID), string(s.Metric), s.Value); err != nil {
			return fmt.Errorf("exec: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FetchSamples returns one metric's samples at or after since, oldest first.
func (r *clickhouseSampleRepo) FetchSamples(ctx context.Context, metric models.MetricKind, since time.Time) (samples []*models.SensorSample, err error) {
	defer func(start time.Time) { observe("fetch_samples", backendClickHouse, start, err) }(time.Now())

	query, args := sampleQuery(metric, since)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &models.SensorSample{}
		var componentID int32
		var m string
		if err := rows.Scan(&s.Timestamp, &componentID, &m, &s.Value); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		s.Timestamp = s.Timestamp.UTC()
		s.ComponentID = int(componentID)
		s.Metric = models.MetricKind(m)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return samples, nil
}

func sampleQuery(metric models.MetricKind, since time.Time) (string, []interface{}) {
	query := `
		SELECT timestamp, component_id, metric, value
		FROM samples
		WHERE metric = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`
	return query, []interface{}{string(metric), since.UTC()}
}
