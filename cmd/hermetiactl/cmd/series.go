package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/timeseries"
)

var seriesRange string

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Show the aligned temperature/humidity series",
	Long: `Show the minute-aligned temperature and humidity series for a range,
capped at the same number of points the dashboard charts.

Ranges: 24h (default), 7d, 30d. Unknown ranges fall back to 24h.

Example:
  hermetiactl series --range 7d -o json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		loc, err := location()
		if err != nil {
			return err
		}

		aligner := timeseries.NewAligner(store.Samples(), nil)
		series := aligner.Series(context.Background(), seriesRange, time.Now())
		if series.Degraded {
			PrintError("sample store unavailable, series is empty", false)
		}
		return writeSeries(cmd.OutOrStdout(), series, loc)
	},
}

func writeSeries(out io.Writer, series *models.Series, loc *time.Location) error {
	switch GetOutput() {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(series)
	case "plain":
		for _, p := range series.Points {
			fmt.Fprintf(out, "%s %s %s\n", p.TimeKey, formatReading(p.Temperature), formatReading(p.Humidity))
		}
		return nil
	}

	if len(series.Points) == 0 {
		fmt.Fprintf(out, "No readings in the last %s.\n", series.Range)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIME\tTEMPERATURE\tHUMIDITY\n")
	fmt.Fprintf(w, "----\t-----------\t--------\n")
	for _, p := range series.Points {
		fmt.Fprintf(w, "%s\t%s\t%s\n", displayTime(p.TimeKey, loc), formatReading(p.Temperature), formatReading(p.Humidity))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nRange: %s, %d point(s)\n", series.Range, len(series.Points))
	return nil
}

func formatReading(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

// displayTime renders a minute key in loc; unparseable keys are shown as is.
func displayTime(key string, loc *time.Location) string {
	t, err := timeseries.ParseTimeKey(key)
	if err != nil {
		return key
	}
	return t.In(loc).Format("2006-01-02 15:04")
}

func init() {
	rootCmd.AddCommand(seriesCmd)
	seriesCmd.Flags().StringVarP(&seriesRange, "range", "r", "24h", "time range: 24h, 7d or 30d")
}
