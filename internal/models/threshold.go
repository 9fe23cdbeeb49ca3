package models

import (
	"errors"
	"math"
	"time"
)

// NotificationToggles controls which alerts are pushed to users.
type NotificationToggles struct {
	Global      bool `json:"global" yaml:"global"`
	Temperature bool `json:"temperature" yaml:"temperature"`
	Humidity    bool `json:"humidity" yaml:"humidity"`
}

// ThresholdConfig holds the incubator's environmental bounds.
// There is exactly one configuration per installation.
type ThresholdConfig struct {
	TempMin              float64             `json:"temp_min" yaml:"temp_min"`
	TempMax              float64             `json:"temp_max" yaml:"temp_max"`
	HumidityMin          float64             `json:"humidity_min" yaml:"humidity_min"`
	HumidityMax          float64             `json:"humidity_max" yaml:"humidity_max"`
	NotificationsEnabled NotificationToggles `json:"notifications_enabled" yaml:"notifications_enabled"`
	UpdatedAt            time.Time           `json:"updated_at" yaml:"-"`
}

// Threshold validation errors.
var (
	ErrInvertedTemperatureRange = errors.New("temp_min must be less than temp_max")
	ErrInvertedHumidityRange    = errors.New("humidity_min must be less than humidity_max")
	ErrNonFiniteThreshold       = errors.New("threshold bounds must be finite numbers")
)

// DefaultThresholdConfig returns the bounds used before an operator saves any.
// Values are suited to black soldier fly larvae.
func DefaultThresholdConfig() *ThresholdConfig {
	return &ThresholdConfig{
		TempMin:     25,
		TempMax:     32,
		HumidityMin: 60,
		HumidityMax: 80,
		NotificationsEnabled: NotificationToggles{
			Global:      true,
			Temperature: true,
			Humidity:    true,
		},
	}
}

// Validate rejects non-finite bounds and inverted or empty ranges.
func (c *ThresholdConfig) Validate() error {
	for _, v := range []float64{c.TempMin, c.TempMax, c.HumidityMin, c.HumidityMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ErrNonFiniteThreshold
		}
	}
	if c.TempMin >= c.TempMax {
		return ErrInvertedTemperatureRange
	}
	if c.HumidityMin >= c.HumidityMax {
		return ErrInvertedHumidityRange
	}
	return nil
}

// Bounds returns the configured min and max for a metric.
func (c *ThresholdConfig) Bounds(m MetricKind) (min, max float64) {
	if m == MetricTemperature {
		return c.TempMin, c.TempMax
	}
	return c.HumidityMin, c.HumidityMax
}
