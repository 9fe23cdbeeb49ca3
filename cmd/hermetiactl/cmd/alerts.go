package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/hermetia/internal/alerting"
	"github.com/good-yellow-bee/hermetia/internal/storage"
)

var (
	alertsLimit  int
	alertsOffset int
)

// alertsCmd represents the alerts command group
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show classified alerts",
	Long: `Show threshold breaches and actuator activations as one alert feed,
newest first.

Examples:
  # Everything from the last 24 hours
  hermetiactl alerts active

  # The second page of the 30 day history
  hermetiactl alerts history --limit 50 --offset 50`,
}

var alertsActiveCmd = &cobra.Command{
	Use:   "active",
	Short: "Alerts from the last 24 hours",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAlerts(cmd.OutOrStdout(), func(a *alerting.Aggregator) *alerting.Feed {
			return a.Active(context.Background(), time.Now())
		})
	},
}

var alertsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Alerts from the last 30 days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if alertsLimit < 0 || alertsOffset < 0 {
			return fmt.Errorf("--limit and --offset must not be negative")
		}
		return runAlerts(cmd.OutOrStdout(), func(a *alerting.Aggregator) *alerting.Feed {
			return a.History(context.Background(), time.Now(), alertsLimit, alertsOffset)
		})
	},
}

func runAlerts(out io.Writer, read func(*alerting.Aggregator) *alerting.Feed) error {
	store, err := openDatabase(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	loc, err := location()
	if err != nil {
		return err
	}

	feed := read(newAggregator(store))
	if feed.FailedSources > 0 {
		PrintError(fmt.Sprintf("%d event source(s) could not be read", feed.FailedSources), false)
	}
	if feed.Skipped > 0 {
		PrintVerbose("skipped %d malformed event(s)", feed.Skipped)
	}
	return writeFeed(out, feed, loc)
}

func newAggregator(store *storage.SQLiteStorage) *alerting.Aggregator {
	return alerting.NewAggregator(store.Breaches(), store.Activations(), store.Components(), nil)
}

func writeFeed(out io.Writer, feed *alerting.Feed, loc *time.Location) error {
	switch GetOutput() {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(feed)
	case "plain":
		for _, a := range feed.Alerts {
			fmt.Fprintf(out, "%s [%s] %s\n", a.Timestamp.In(loc).Format(time.RFC3339), a.Severity, a.Message)
		}
		return nil
	}

	if len(feed.Alerts) == 0 {
		fmt.Fprintln(out, "No alerts.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TIME\tSEVERITY\tCOMPONENT\tMESSAGE\n")
	fmt.Fprintf(w, "----\t--------\t---------\t-------\n")
	for _, a := range feed.Alerts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			a.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			a.Severity,
			a.ComponentName,
			a.Message,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\nTotal: %d alert(s)\n", len(feed.Alerts))
	return nil
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsActiveCmd)
	alertsCmd.AddCommand(alertsHistoryCmd)

	alertsHistoryCmd.Flags().IntVar(&alertsLimit, "limit", 50, "maximum alerts to show (1-100)")
	alertsHistoryCmd.Flags().IntVar(&alertsOffset, "offset", 0, "number of newest alerts to skip")
}
