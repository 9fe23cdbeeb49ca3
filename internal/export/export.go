// Package export serializes aligned series for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/timeseries"
)

// Format defines the output format for exports.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Date and time layouts used in exported files. Existing spreadsheets
// depend on them.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04:05"
)

// ParseFormat parses a string to Format. An empty string means JSON.
func ParseFormat(s string) (Format, bool) {
	switch s {
	case "", "json":
		return FormatJSON, true
	case "csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Filename returns the attachment name for a range export.
func Filename(r timeseries.Range, f Format) string {
	return fmt.Sprintf("hermetia_%s.%s", r, f)
}

// Row is one exported minute in JSON output.
type Row struct {
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Exporter writes aligned points in the configured format.
type Exporter struct {
	format Format
	writer io.Writer
	loc    *time.Location
}

// NewExporter creates an exporter. Dates and times are rendered in loc;
// a nil loc means UTC.
func NewExporter(format Format, w io.Writer, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{format: format, writer: w, loc: loc}
}

// Export writes the points, oldest first as given.
func (e *Exporter) Export(points []*models.AlignedPoint) error {
	switch e.format {
	case FormatCSV:
		return e.exportCSV(points)
	default:
		return e.exportJSON(points)
	}
}

// exportCSV writes one row per present value; a missing metric produces no row.
func (e *Exporter) exportCSV(points []*models.AlignedPoint) error {
	w := csv.NewWriter(e.writer)

	if err := w.Write([]string{"Date", "Time", "Metric", "Value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, p := range points {
		date, clock, err := e.stamp(p.TimeKey)
		if err != nil {
			return err
		}
		for _, v := range []struct {
			metric models.MetricKind
			value  *float64
		}{
			{models.MetricTemperature, p.Temperature},
			{models.MetricHumidity, p.Humidity},
		} {
			if v.value == nil {
				continue
			}
			record := []string{date, clock, string(v.metric), strconv.FormatFloat(*v.value, 'f', -1, 64)}
			if err := w.Write(record); err != nil {
				return fmt.Errorf("write row: %w", err)
			}
		}
	}

	w.Flush()
	return w.Error()
}

func (e *Exporter) exportJSON(points []*models.AlignedPoint) error {
	rows := make([]Row, 0, len(points))
	for _, p := range points {
		date, clock, err := e.stamp(p.TimeKey)
		if err != nil {
			return err
		}
		rows = append(rows, Row{
			Date:        date,
			Time:        clock,
			Temperature: p.Temperature,
			Humidity:    p.Humidity,
		})
	}

	encoder := json.NewEncoder(e.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func (e *Exporter) stamp(key string) (date, clock string, err error) {
	t, err := timeseries.ParseTimeKey(key)
	if err != nil {
		return "", "", fmt.Errorf("parse time key %q: %w", key, err)
	}
	t = t.In(e.loc)
	return t.Format(DateLayout), t.Format(TimeLayout), nil
}
