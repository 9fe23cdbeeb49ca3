// Package cmd contains the CLI commands for hermetiactl.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/good-yellow-bee/hermetia/internal/storage"
)

// defaultDBPath is the default database path, can be overridden via HERMETIA_DB_PATH env var
var defaultDBPath = "./data/hermetia.db"

var (
	// Used for flags
	verbose  bool
	output   string
	dbPath   string
	timezone string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hermetiactl",
	Short: "Hermetia - incubator monitoring CLI",
	Long: `hermetiactl inspects and administers a Hermetia installation by
working directly on its SQLite database.

Examples:
  # Temperature and humidity for the last week
  hermetiactl series --range 7d

  # Alerts from the last 24 hours
  hermetiactl alerts active

  # Export a month of readings as CSV
  hermetiactl export --range 30d --format csv --out readings.csv

  # Issue a dashboard token
  hermetiactl token --subject dashboard`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch output {
		case "table", "json", "plain":
		default:
			return fmt.Errorf("unknown output format %q (table, json, plain)", output)
		}
		return nil
	},
	// Run when no subcommand is specified
	Run: func(cmd *cobra.Command, args []string) {
		// Show help by default
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		PrintError(fmt.Sprintf("load .env: %v", err), false)
	}
	if envPath := os.Getenv("HERMETIA_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
		dbPath = envPath
	}
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "output format (table, json, plain)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDBPath, "path to SQLite database file")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "UTC", "time zone for displayed and exported times")
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}

// GetOutput returns the output format.
func GetOutput() string {
	return output
}

// PrintError prints an error message and exits if fatal is true.
func PrintError(msg string, fatal bool) {
	fmt.Fprintln(os.Stderr, "Error:", msg)
	if fatal {
		os.Exit(1)
	}
}

// PrintVerbose prints a message only if verbose mode is enabled.
func PrintVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// openDatabase opens an existing database and brings its schema up to date.
func openDatabase(path string) (*storage.SQLiteStorage, error) {
	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("database file not found: %s", path)
	}

	store := storage.NewSQLiteStorage(path)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	PrintVerbose("opened %s", path)
	return store, nil
}

func location() (*time.Location, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid --timezone: %w", err)
	}
	return loc, nil
}
