package timeseries

import (
	"sort"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// TimeKeyLayout is the ISO minute format used as the join key.
// Lexicographic order of keys equals chronological order.
const TimeKeyLayout = "2006-01-02T15:04"

// DefaultMaxPoints is how many trailing points a dashboard series keeps.
const DefaultMaxPoints = 50

// TimeKey truncates t to the minute and formats it in UTC.
func TimeKey(t time.Time) string {
	return t.UTC().Format(TimeKeyLayout)
}

// Align joins two sample streams on their minute keys.
//
// Every key present in either stream yields exactly one point, in ascending
// key order. A metric with no sample in that minute is left nil. When a
// stream holds several samples in one minute the last one wins, so callers
// should pass streams in ascending timestamp order. If maxPoints is positive
// only the most recent maxPoints points are returned.
func Align(temperature, humidity []*models.SensorSample, maxPoints int) []*models.AlignedPoint {
	temps := indexByMinute(temperature)
	hums := indexByMinute(humidity)

	keys := make([]string, 0, len(temps)+len(hums))
	for k := range temps {
		keys = append(keys, k)
	}
	for k := range hums {
		if _, dup := temps[k]; !dup {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if maxPoints > 0 && len(keys) > maxPoints {
		keys = keys[len(keys)-maxPoints:]
	}

	points := make([]*models.AlignedPoint, len(keys))
	for i, k := range keys {
		p := &models.AlignedPoint{TimeKey: k}
		if v, ok := temps[k]; ok {
			p.Temperature = &v
		}
		if v, ok := hums[k]; ok {
			p.Humidity = &v
		}
		points[i] = p
	}
	return points
}

func indexByMinute(samples []*models.SensorSample) map[string]float64 {
	m := make(map[string]float64, len(samples))
	for _, s := range samples {
		m[TimeKey(s.Timestamp)] = s.Value
	}
	return m
}

// ParseTimeKey converts a key produced by TimeKey back to a UTC instant.
func ParseTimeKey(key string) (time.Time, error) {
	return time.ParseInLocation(TimeKeyLayout, key, time.UTC)
}
