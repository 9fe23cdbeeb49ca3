package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

type sqliteThresholdRepo struct {
	db *sql.DB
}

func (r *sqliteThresholdRepo) Get(ctx context.Context) (*models.ThresholdConfig, error) {
	query := `
		SELECT temp_min, temp_max, humidity_min, humidity_max,
			notify_global, notify_temperature, notify_humidity, updated_at_ms
		FROM thresholds WHERE id = 1
	`
	cfg := &models.ThresholdConfig{}
	var global, temp, hum int
	var updatedMillis int64
	err := r.db.QueryRowContext(ctx, query).Scan(
		&cfg.TempMin, &cfg.TempMax, &cfg.HumidityMin, &cfg.HumidityMax,
		&global, &temp, &hum, &updatedMillis,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultThresholdConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get thresholds: %w", err)
	}

	cfg.NotificationsEnabled = models.NotificationToggles{
		Global:      global != 0,
		Temperature: temp != 0,
		Humidity:    hum != 0,
	}
	cfg.UpdatedAt = fromMillis(updatedMillis)
	return cfg, nil
}

// Save replaces the configuration. Inverted ranges are rejected.
func (r *sqliteThresholdRepo) Save(ctx context.Context, cfg *models.ThresholdConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO thresholds (id, temp_min, temp_max, humidity_min, humidity_max,
			notify_global, notify_temperature, notify_humidity, updated_at_ms)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			temp_min = excluded.temp_min, temp_max = excluded.temp_max,
			humidity_min = excluded.humidity_min, humidity_max = excluded.humidity_max,
			notify_global = excluded.notify_global,
			notify_temperature = excluded.notify_temperature,
			notify_humidity = excluded.notify_humidity,
			updated_at_ms = excluded.updated_at_ms
	`
	t := cfg.NotificationsEnabled
	_, err := r.db.ExecContext(ctx, query,
		cfg.TempMin, cfg.TempMax, cfg.HumidityMin, cfg.HumidityMax,
		boolToInt(t.Global), boolToInt(t.Temperature), boolToInt(t.Humidity),
		cfg.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}
