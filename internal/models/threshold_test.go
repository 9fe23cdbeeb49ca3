package models

import (
	"errors"
	"math"
	"testing"
)

func TestThresholdConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *ThresholdConfig)
		want   error
	}{
		{"defaults", func(c *ThresholdConfig) {}, nil},
		{"inverted temperature", func(c *ThresholdConfig) { c.TempMin = c.TempMax }, ErrInvertedTemperatureRange},
		{"inverted humidity", func(c *ThresholdConfig) { c.HumidityMin = 90 }, ErrInvertedHumidityRange},
		{"nan min", func(c *ThresholdConfig) { c.TempMin = math.NaN() }, ErrNonFiniteThreshold},
		{"nan max", func(c *ThresholdConfig) { c.HumidityMax = math.NaN() }, ErrNonFiniteThreshold},
		{"infinite max", func(c *ThresholdConfig) { c.TempMax = math.Inf(1) }, ErrNonFiniteThreshold},
		{"infinite min", func(c *ThresholdConfig) { c.HumidityMin = math.Inf(-1) }, ErrNonFiniteThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultThresholdConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
