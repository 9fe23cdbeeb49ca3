package alerting

import (
	"errors"
	"testing"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

func TestEvaluate(t *testing.T) {
	cfg := &models.ThresholdConfig{TempMin: 25, TempMax: 32, HumidityMin: 60, HumidityMax: 80}

	tests := []struct {
		name          string
		metric        models.MetricKind
		value         float64
		wantBreach    bool
		wantCondition models.Condition
		wantThreshold float64
	}{
		{"temperature in range", models.MetricTemperature, 28, false, "", 0},
		{"temperature at max", models.MetricTemperature, 32, false, "", 0},
		{"temperature above", models.MetricTemperature, 33.5, true, models.ConditionAbove, 32},
		{"temperature below", models.MetricTemperature, 20, true, models.ConditionBelow, 25},
		{"humidity at min", models.MetricHumidity, 60, false, "", 0},
		{"humidity below", models.MetricHumidity, 50, true, models.ConditionBelow, 60},
		{"humidity above", models.MetricHumidity, 95, true, models.ConditionAbove, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &models.SensorSample{Timestamp: ts, ComponentID: 2, Metric: tt.metric, Value: tt.value}
			breach, err := Evaluate(s, cfg)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if (breach != nil) != tt.wantBreach {
				t.Fatalf("breach = %v, want breach %v", breach, tt.wantBreach)
			}
			if breach == nil {
				return
			}
			if breach.Condition != tt.wantCondition {
				t.Errorf("condition = %s, want %s", breach.Condition, tt.wantCondition)
			}
			if breach.Threshold != tt.wantThreshold {
				t.Errorf("threshold = %v, want %v", breach.Threshold, tt.wantThreshold)
			}
			if breach.ID == "" {
				t.Error("breach id should be set")
			}
			if breach.ComponentID != 2 || breach.Value != tt.value || !breach.Timestamp.Equal(ts) {
				t.Errorf("breach does not carry sample fields: %+v", breach)
			}
		})
	}
}

func TestEvaluate_RejectsInvertedConfig(t *testing.T) {
	cfg := &models.ThresholdConfig{TempMin: 35, TempMax: 30, HumidityMin: 60, HumidityMax: 80}
	s := &models.SensorSample{Timestamp: ts, Metric: models.MetricTemperature, Value: 31}

	_, err := Evaluate(s, cfg)
	if !errors.Is(err, models.ErrInvertedTemperatureRange) {
		t.Errorf("expected inverted range error, got %v", err)
	}
}

func TestEvaluate_RejectsUnknownMetric(t *testing.T) {
	s := &models.SensorSample{Timestamp: ts, Metric: "co2", Value: 400}

	_, err := Evaluate(s, models.DefaultThresholdConfig())
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}

func TestShouldNotify(t *testing.T) {
	tempAlert := &models.Alert{SourceKind: models.SourceThreshold, Metric: models.MetricTemperature}
	humAlert := &models.Alert{SourceKind: models.SourceThreshold, Metric: models.MetricHumidity}
	actAlert := &models.Alert{SourceKind: models.SourceActuator}

	tests := []struct {
		name    string
		toggles models.NotificationToggles
		alert   *models.Alert
		want    bool
	}{
		{"all on temperature", models.NotificationToggles{Global: true, Temperature: true, Humidity: true}, tempAlert, true},
		{"global off", models.NotificationToggles{Global: false, Temperature: true, Humidity: true}, tempAlert, false},
		{"temperature off", models.NotificationToggles{Global: true, Temperature: false, Humidity: true}, tempAlert, false},
		{"humidity off", models.NotificationToggles{Global: true, Temperature: true, Humidity: false}, humAlert, false},
		{"humidity on", models.NotificationToggles{Global: true, Humidity: true}, humAlert, true},
		{"actuator global on", models.NotificationToggles{Global: true}, actAlert, true},
		{"actuator global off", models.NotificationToggles{Temperature: true, Humidity: true}, actAlert, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &models.ThresholdConfig{NotificationsEnabled: tt.toggles}
			if got := ShouldNotify(cfg, tt.alert); got != tt.want {
				t.Errorf("ShouldNotify = %v, want %v", got, tt.want)
			}
		})
	}
}
