package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()

	store := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate database: %v", err)
	}
	return store
}

var base = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func TestSQLiteStorage_Migrate(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	tables := []string{"components", "samples", "threshold_breaches", "actuator_activations", "thresholds", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count)
		if err != nil {
			t.Errorf("table %s should exist: %v", table, err)
		}
	}

	// Running again is a no-op.
	if err := store.Migrate(); err != nil {
		t.Errorf("second migrate: %v", err)
	}
}

func TestSQLiteStorage_OpenRequiresPath(t *testing.T) {
	if err := NewSQLiteStorage("").Open(); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestSampleRepository_FetchOrderedSinceByMetric(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	repo := store.Samples()

	inputs := []*models.SensorSample{
		{Timestamp: base.Add(3 * time.Minute), ComponentID: 1, Metric: models.MetricTemperature, Value: 28.5},
		{Timestamp: base.Add(1 * time.Minute), ComponentID: 1, Metric: models.MetricTemperature, Value: 27},
		{Timestamp: base.Add(2 * time.Minute), ComponentID: 2, Metric: models.MetricHumidity, Value: 70},
		{Timestamp: base.Add(-time.Hour), ComponentID: 1, Metric: models.MetricTemperature, Value: 20},
	}
	for _, s := range inputs {
		if err := repo.Insert(ctx, s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	temps, err := repo.FetchSamples(ctx, models.MetricTemperature, base)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(temps) != 2 {
		t.Fatalf("expected 2 temperature samples, got %d", len(temps))
	}
	if temps[0].Value != 27 || temps[1].Value != 28.5 {
		t.Errorf("samples not ascending: %v, %v", temps[0].Value, temps[1].Value)
	}
	if !temps[0].Timestamp.Equal(base.Add(time.Minute)) || temps[0].Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v", temps[0].Timestamp)
	}

	hums, err := repo.FetchSamples(ctx, models.MetricHumidity, base)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(hums) != 1 || hums[0].ComponentID != 2 {
		t.Errorf("unexpected humidity samples: %+v", hums)
	}
}

func TestBreachRepository_InsertAndFetch(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	repo := store.Breaches()

	for i := 0; i < 5; i++ {
		e := &models.ThresholdBreachEvent{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Metric:      models.MetricTemperature,
			Value:       33 + float64(i),
			Threshold:   32,
			Condition:   models.ConditionAbove,
			ComponentID: 1,
		}
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if e.ID == "" {
			t.Fatal("insert should assign an id")
		}
	}

	all, err := repo.FetchThresholdBreaches(ctx, base, 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 breaches, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp.After(all[i-1].Timestamp) {
			t.Errorf("breaches not newest first at %d", i)
		}
	}

	limited, err := repo.FetchThresholdBreaches(ctx, base.Add(2*time.Minute), 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(limited) != 2 || limited[0].Value != 37 {
		t.Errorf("unexpected limited result: %+v", limited)
	}
}

func TestBreachRepository_NormalizesLegacyValues(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.db.ExecContext(ctx, `
		INSERT INTO threshold_breaches (id, ts_ms, metric, value, threshold, condition, component_id)
		VALUES ('legacy', ?, 'humedad', 50, 60, 'menor', 2), ('broken', ?, 'co2', 1, 2, 'equal', 2)
	`, base.UnixMilli(), base.UnixMilli())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	events, err := store.Breaches().FetchThresholdBreaches(ctx, base.Add(-time.Minute), 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	byID := map[string]*models.ThresholdBreachEvent{}
	for _, e := range events {
		byID[e.ID] = e
	}

	if e := byID["legacy"]; e.Metric != models.MetricHumidity || e.Condition != models.ConditionBelow {
		t.Errorf("legacy breach not normalized: %+v", e)
	}
	if e := byID["broken"]; e.Metric.Valid() || e.Condition.Valid() {
		t.Errorf("unknown values should pass through unchanged: %+v", e)
	}
}

func TestActivationRepository_InsertAndFetch(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	repo := store.Activations()

	for i := 0; i < 3; i++ {
		e := &models.ActuatorActivationEvent{Timestamp: base.Add(time.Duration(i) * time.Hour), ActuatorComponentID: 4}
		if err := repo.Insert(ctx, e); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	events, err := repo.FetchActuatorActivations(ctx, base.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 activations, got %d", len(events))
	}
	if !events[0].Timestamp.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("first activation = %v, want newest", events[0].Timestamp)
	}
}

func TestComponentRepository(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	repo := store.Components()

	seed := []*models.Component{
		{ID: 1, DisplayName: "DHT11 A", Kind: models.ComponentSensor, Active: true},
		{ID: 3, DisplayName: "Humidificador", Kind: models.ComponentActuator, Active: true},
		{ID: 5, DisplayName: "Calefactor", Kind: models.ComponentActuator},
	}
	if err := store.EnsureComponents(ctx, seed); err != nil {
		t.Fatalf("ensure components: %v", err)
	}
	// Existing components are left alone.
	if err := store.EnsureComponents(ctx, []*models.Component{{ID: 9, DisplayName: "x", Kind: models.ComponentSensor}}); err != nil {
		t.Fatalf("ensure components: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 components, got %d", len(list))
	}

	found, err := repo.FetchComponentsByIDs(ctx, []int{1, 5, 42})
	if err != nil {
		t.Fatalf("fetch by ids: %v", err)
	}
	if len(found) != 2 || found[5].DisplayName != "Calefactor" {
		t.Errorf("unexpected lookup result: %+v", found)
	}
	if _, ok := found[42]; ok {
		t.Error("unknown id should be absent")
	}

	empty, err := repo.FetchComponentsByIDs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty lookup = %v, %v", empty, err)
	}

	if err := repo.SetActive(ctx, 5, true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	c, err := repo.GetByID(ctx, 5)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !c.Active || c.Kind != models.ComponentActuator {
		t.Errorf("unexpected component: %+v", c)
	}

	if err := repo.SetActive(ctx, 99, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByID(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestThresholdRepository(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	repo := store.Thresholds()

	cfg, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *cfg != *models.DefaultThresholdConfig() {
		t.Errorf("expected defaults before first save, got %+v", cfg)
	}

	updated := &models.ThresholdConfig{
		TempMin: 26, TempMax: 31, HumidityMin: 65, HumidityMax: 75,
		NotificationsEnabled: models.NotificationToggles{Global: true, Humidity: true},
		UpdatedAt:            base,
	}
	if err := repo.Save(ctx, updated); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TempMin != 26 || got.HumidityMax != 75 {
		t.Errorf("bounds not saved: %+v", got)
	}
	if got.NotificationsEnabled.Temperature || !got.NotificationsEnabled.Humidity {
		t.Errorf("toggles not saved: %+v", got.NotificationsEnabled)
	}
	if !got.UpdatedAt.Equal(base) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, base)
	}

	inverted := *updated
	inverted.HumidityMin = 90
	if err := repo.Save(ctx, &inverted); !errors.Is(err, models.ErrInvertedHumidityRange) {
		t.Errorf("expected inverted range error, got %v", err)
	}
}
