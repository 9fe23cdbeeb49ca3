package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/hermetia/internal/models"
	"github.com/good-yellow-bee/hermetia/internal/thresholdfile"
)

var (
	thresholdsFile          string
	thresholdsTempMin       float64
	thresholdsTempMax       float64
	thresholdsHumidityMin   float64
	thresholdsHumidityMax   float64
	thresholdsNotify        bool
	thresholdsNotifyTemp    bool
	thresholdsNotifyHumidity bool
)

// thresholdsCmd represents the thresholds command group
var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Show or change the environmental thresholds",
	Long: `Show or change the temperature and humidity bounds that readings are
checked against, and which breaches are pushed as notifications.

Examples:
  hermetiactl thresholds get

  # Raise the upper temperature bound, keep everything else
  hermetiactl thresholds set --temp-max 33

  # Replace the configuration with a YAML file
  hermetiactl thresholds set --file thresholds.yaml`,
}

var thresholdsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current thresholds",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		cfg, err := store.Thresholds().Get(context.Background())
		if err != nil {
			return fmt.Errorf("get thresholds: %w", err)
		}
		return writeThresholds(cmd.OutOrStdout(), cfg)
	},
}

var thresholdsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the thresholds",
	Long: `Change the thresholds. Either load a whole configuration with --file
or adjust the stored one with individual flags. Inverted ranges are rejected.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDatabase(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		var cfg *models.ThresholdConfig
		if thresholdsFile != "" {
			cfg, err = thresholdfile.Load(thresholdsFile)
			if err != nil {
				return err
			}
		} else {
			cfg, err = store.Thresholds().Get(ctx)
			if err != nil {
				return fmt.Errorf("get thresholds: %w", err)
			}
			if !applyThresholdFlags(cmd, cfg) {
				return fmt.Errorf("nothing to change: pass --file or at least one threshold flag")
			}
		}

		if err := cfg.Validate(); err != nil {
			return err
		}
		cfg.UpdatedAt = time.Now().UTC()
		if err := store.Thresholds().Save(ctx, cfg); err != nil {
			return fmt.Errorf("save thresholds: %w", err)
		}
		return writeThresholds(cmd.OutOrStdout(), cfg)
	},
}

// applyThresholdFlags copies the flags the user set onto cfg and reports
// whether any were set.
func applyThresholdFlags(cmd *cobra.Command, cfg *models.ThresholdConfig) bool {
	flags := cmd.Flags()
	changed := false
	setFloat := func(name string, dst *float64, v float64) {
		if flags.Changed(name) {
			*dst = v
			changed = true
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if flags.Changed(name) {
			*dst = v
			changed = true
		}
	}

	setFloat("temp-min", &cfg.TempMin, thresholdsTempMin)
	setFloat("temp-max", &cfg.TempMax, thresholdsTempMax)
	setFloat("humidity-min", &cfg.HumidityMin, thresholdsHumidityMin)
	setFloat("humidity-max", &cfg.HumidityMax, thresholdsHumidityMax)
	setBool("notify", &cfg.NotificationsEnabled.Global, thresholdsNotify)
	setBool("notify-temperature", &cfg.NotificationsEnabled.Temperature, thresholdsNotifyTemp)
	setBool("notify-humidity", &cfg.NotificationsEnabled.Humidity, thresholdsNotifyHumidity)
	return changed
}

func writeThresholds(out io.Writer, cfg *models.ThresholdConfig) error {
	if GetOutput() == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	fmt.Fprintf(out, "Temperature:  %g - %g °C\n", cfg.TempMin, cfg.TempMax)
	fmt.Fprintf(out, "Humidity:     %g - %g %%\n", cfg.HumidityMin, cfg.HumidityMax)
	fmt.Fprintf(out, "Notifications: %s (temperature %s, humidity %s)\n",
		onOff(cfg.NotificationsEnabled.Global),
		onOff(cfg.NotificationsEnabled.Temperature),
		onOff(cfg.NotificationsEnabled.Humidity),
	)
	if !cfg.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "Updated:      %s\n", cfg.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
	thresholdsCmd.AddCommand(thresholdsGetCmd)
	thresholdsCmd.AddCommand(thresholdsSetCmd)

	f := thresholdsSetCmd.Flags()
	f.StringVar(&thresholdsFile, "file", "", "YAML file with the full configuration")
	f.Float64Var(&thresholdsTempMin, "temp-min", 0, "minimum temperature (°C)")
	f.Float64Var(&thresholdsTempMax, "temp-max", 0, "maximum temperature (°C)")
	f.Float64Var(&thresholdsHumidityMin, "humidity-min", 0, "minimum relative humidity (%)")
	f.Float64Var(&thresholdsHumidityMax, "humidity-max", 0, "maximum relative humidity (%)")
	f.BoolVar(&thresholdsNotify, "notify", true, "push notifications at all")
	f.BoolVar(&thresholdsNotifyTemp, "notify-temperature", true, "push temperature breaches")
	f.BoolVar(&thresholdsNotifyHumidity, "notify-humidity", true, "push humidity breaches")
	thresholdsSetCmd.MarkFlagsMutuallyExclusive("file", "temp-min")
	thresholdsSetCmd.MarkFlagsMutuallyExclusive("file", "temp-max")
	thresholdsSetCmd.MarkFlagsMutuallyExclusive("file", "humidity-min")
	thresholdsSetCmd.MarkFlagsMutuallyExclusive("file", "humidity-max")
}
