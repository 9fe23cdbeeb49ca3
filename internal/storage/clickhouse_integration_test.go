//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// Integration tests require running ClickHouse.
// Run with: go test -tags=integration ./internal/storage/...

func setupClickHouseTest(t *testing.T) *ClickHouseStorage {
	t.Helper()

	store := NewClickHouseStorage(&ClickHouseConfig{
		Addresses:     []string{"localhost:9000"},
		Database:      "hermetia_test",
		Username:      "default",
		MaxOpenConns:  2,
		MaxIdleConns:  2,
		DialTimeout:   5 * time.Second,
		Compression:   true,
		RetentionDays: 1,
	})
	if err := store.Open(); err != nil {
		t.Skipf("ClickHouse not available: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		store.db.Exec("TRUNCATE TABLE samples")
		store.Close()
	})
	return store
}

func TestClickHouseStorage_Samples_Integration(t *testing.T) {
	store := setupClickHouseTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	batch := []*models.SensorSample{
		{Timestamp: now.Add(-2 * time.Minute), ComponentID: 1, Metric: models.MetricTemperature, Value: 28},
		{Timestamp: now.Add(-time.Minute), ComponentID: 1, Metric: models.MetricTemperature, Value: 29},
		{Timestamp: now.Add(-time.Minute), ComponentID: 2, Metric: models.MetricHumidity, Value: 70},
	}
	if err := store.BatchWriter().InsertBatch(ctx, batch); err != nil {
		t.Fatalf("insert batch: %v", err)
	}

	got, err := store.Samples().FetchSamples(ctx, models.MetricTemperature, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].Value != 28 || got[1].Value != 29 {
		t.Errorf("unexpected samples: %+v", got)
	}
}

func TestClickHouseStorage_Ping_Integration(t *testing.T) {
	store := setupClickHouseTest(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}
