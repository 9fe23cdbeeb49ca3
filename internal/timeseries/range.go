// Package timeseries merges independently sampled temperature and humidity
// streams into one minute-aligned series.
package timeseries

import "time"

// Range is a dashboard time window token.
type Range string

const (
	Range24h Range = "24h"
	Range7d  Range = "7d"
	Range30d Range = "30d"
)

// ParseRange converts a token to a Range. Unrecognized tokens fall back to 24h.
func ParseRange(s string) Range {
	switch Range(s) {
	case Range7d:
		return Range7d
	case Range30d:
		return Range30d
	default:
		return Range24h
	}
}

// Window bounds the samples considered for one alignment.
type Window struct {
	Start time.Time
	End   time.Time
}

// Window returns the window ending at now. Day ranges step back calendar days.
func (r Range) Window(now time.Time) Window {
	var start time.Time
	switch r {
	case Range7d:
		start = now.AddDate(0, 0, -7)
	case Range30d:
		start = now.AddDate(0, 0, -30)
	default:
		start = now.Add(-24 * time.Hour)
	}
	return Window{Start: start, End: now}
}
