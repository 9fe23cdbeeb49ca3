package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

type sqliteSampleRepo struct {
	db *sql.DB
}

func (r *sqliteSampleRepo) Insert(ctx context.Context, s *models.SensorSample) (err error) {
	defer func(start time.Time) { observe("insert_sample", backendSQLite, start, err) }(time.Now())

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO samples (ts_ms, component_id, metric, value) VALUES (?, ?, ?, ?)",
		s.Timestamp.UnixMilli(), s.ComponentID, string(s.Metric), s.Value,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (r *sqliteSampleRepo) FetchSamples(ctx context.Context, metric models.MetricKind, since time.Time) (samples []*models.SensorSample, err error) {
	defer func(start time.Time) { observe("fetch_samples", backendSQLite, start, err) }(time.Now())

	query := `
		SELECT ts_ms, component_id, metric, value
		FROM samples WHERE metric = ? AND ts_ms >= ?
		ORDER BY ts_ms ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, string(metric), since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		s := &models.SensorSample{}
		var tsMillis int64
		var m string
		if err := rows.Scan(&tsMillis, &s.ComponentID, &m, &s.Value); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		s.Timestamp = fromMillis(tsMillis)
		s.Metric = models.MetricKind(m)
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}
