package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

type sqliteBreachRepo struct {
	db *sql.DB
}

func (r *sqliteBreachRepo) Insert(ctx context.Context, e *models.ThresholdBreachEvent) (err error) {
	defer func(start time.Time) { observe("insert_breach", backendSQLite, start, err) }(time.Now())

	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	query := `
		INSERT INTO threshold_breaches (id, ts_ms, metric, value, threshold, condition, component_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.Timestamp.UnixMilli(), string(e.Metric), e.Value, e.Threshold,
		string(e.Condition), e.ComponentID,
	)
	if err != nil {
		return fmt.Errorf("insert breach: %w", err)
	}
	return nil
}

func (r *sqliteBreachRepo) FetchThresholdBreaches(ctx context.Context, since time.Time, limit int) (events []*models.ThresholdBreachEvent, err error) {
	defer func(start time.Time) { observe("fetch_breaches", backendSQLite, start, err) }(time.Now())

	query := `
		SELECT id, ts_ms, metric, value, threshold, condition, component_id
		FROM threshold_breaches WHERE ts_ms >= ?
		ORDER BY ts_ms DESC, rowid DESC
	`
	args := []interface{}{since.UnixMilli()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query breaches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e := &models.ThresholdBreachEvent{}
		var tsMillis int64
		var metric, cond string
		err := rows.Scan(&e.ID, &tsMillis, &metric, &e.Value, &e.Threshold, &cond, &e.ComponentID)
		if err != nil {
			return nil, fmt.Errorf("scan breach: %w", err)
		}
		e.Timestamp = fromMillis(tsMillis)
		e.Metric = normalizeMetric(metric)
		e.Condition = normalizeCondition(cond)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breaches: %w", err)
	}
	return events, nil
}

type sqliteActivationRepo struct {
	db *sql.DB
}

func (r *sqliteActivationRepo) Insert(ctx context.Context, e *models.ActuatorActivationEvent) (err error) {
	defer func(start time.Time) { observe("insert_activation", backendSQLite, start, err) }(time.Now())

	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO actuator_activations (id, ts_ms, component_id) VALUES (?, ?, ?)",
		e.ID, e.Timestamp.UnixMilli(), e.ActuatorComponentID,
	)
	if err != nil {
		return fmt.Errorf("insert activation: %w", err)
	}
	return nil
}

func (r *sqliteActivationRepo) FetchActuatorActivations(ctx context.Context, since time.Time, limit int) (events []*models.ActuatorActivationEvent, err error) {
	defer func(start time.Time) { observe("fetch_activations", backendSQLite, start, err) }(time.Now())

	query := `
		SELECT id, ts_ms, component_id
		FROM actuator_activations WHERE ts_ms >= ?
		ORDER BY ts_ms DESC, rowid DESC
	`
	args := []interface{}{since.UnixMilli()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e := &models.ActuatorActivationEvent{}
		var tsMillis int64
		if err := rows.Scan(&e.ID, &tsMillis, &e.ActuatorComponentID); err != nil {
			return nil, fmt.Errorf("scan activation: %w", err)
		}
		e.Timestamp = fromMillis(tsMillis)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activations: %w", err)
	}
	return events, nil
}

// normalizeMetric maps legacy stored names to MetricKind. Unknown values
// are kept as-is so the classifier can reject them.
func normalizeMetric(s string) models.MetricKind {
	if m, err := models.ParseMetricKind(s); err == nil {
		return m
	}
	return models.MetricKind(s)
}

// normalizeCondition maps legacy stored conditions to Condition. Unknown
// values are kept as-is so the classifier can reject them.
func normalizeCondition(s string) models.Condition {
	if c, err := models.ParseCondition(s); err == nil {
		return c
	}
	return models.Condition(s)
}
