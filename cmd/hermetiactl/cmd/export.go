package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/hermetia/internal/export"
	"github.com/good-yellow-bee/hermetia/internal/timeseries"
)

var (
	exportRange  string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the full aligned series",
	Long: `Export every aligned minute in a range, without the dashboard point cap.

CSV output has one row per metric per minute (Date,Time,Metric,Value);
JSON output has one object per minute. Times use --timezone.

Example:
  hermetiactl export --range 30d --format csv --out hermetia_30d.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, ok := export.ParseFormat(exportFormat)
		if !ok {
			return fmt.Errorf("unknown format %q (csv, json)", exportFormat)
		}
		loc, err := location()
		if err != nil {
			return err
		}

		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		r := timeseries.ParseRange(exportRange)
		points, err := timeseries.NewAligner(store.Samples(), nil).Export(context.Background(), r, time.Now())
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}

		var out io.Writer = cmd.OutOrStdout()
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		bw := bufio.NewWriter(out)
		if err := export.NewExporter(format, bw, loc).Export(points); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("write export: %w", err)
		}

		PrintVerbose("exported %d minute(s) for %s", len(points), r)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportRange, "range", "r", "24h", "time range: 24h, 7d or 30d")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "file format: csv or json")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default: stdout)")
}
