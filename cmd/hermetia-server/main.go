package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/hermetia/internal/alerting"
	"github.com/good-yellow-bee/hermetia/internal/api"
	"github.com/good-yellow-bee/hermetia/internal/api/health"
	"github.com/good-yellow-bee/hermetia/internal/ingest"
	"github.com/good-yellow-bee/hermetia/internal/metrics"
	"github.com/good-yellow-bee/hermetia/internal/notifier"
	"github.com/good-yellow-bee/hermetia/internal/security"
	"github.com/good-yellow-bee/hermetia/internal/storage"
	"github.com/good-yellow-bee/hermetia/internal/thresholdfile"
	"github.com/good-yellow-bee/hermetia/internal/timeseries"
	"github.com/good-yellow-bee/hermetia/pkg/config"
)

var (
	configFile string
	httpAddr   string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "hermetia-server",
	Short: "Hermetia Server - incubator monitoring backend",
	Long: `Hermetia Server ingests incubator sensor readings over MQTT and HTTP,
records threshold breaches and actuator activations, and serves the
dashboard API: aligned temperature/humidity series, alert feeds and exports.`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("hermetia-server %s\n", config.Version)
		fmt.Printf("  commit: %s\n", config.Commit)
		fmt.Printf("  built:  %s\n", config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	var cfg *Config

	// Load configuration from file if provided
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	// Override with CLI flags
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	loc, _ := time.LoadLocation(cfg.API.Timezone)

	// Auto-create data directory
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	if err := store.EnsureComponents(context.Background(), cfg.seedComponents()); err != nil {
		return fmt.Errorf("seed components: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	var checkers []health.Checker

	// Sample store: SQLite by default, ClickHouse behind a write buffer when configured.
	samples := store.Samples()
	if cfg.Samples.Backend == backendClickHouse {
		ch := storage.NewClickHouseStorage(&storage.ClickHouseConfig{
			Addresses:     cfg.Samples.ClickHouse.Addresses,
			Database:      cfg.Samples.ClickHouse.Database,
			Username:      cfg.Samples.ClickHouse.Username,
			Password:      cfg.Samples.ClickHouse.Password,
			Compression:   cfg.Samples.ClickHouse.Compression,
			RetentionDays: cfg.Samples.ClickHouse.RetentionDays,
		})
		if err := ch.Open(); err != nil {
			return fmt.Errorf("open clickhouse: %w", err)
		}
		defer ch.Close()
		if err := ch.Migrate(); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}

		buf := storage.NewSampleBuffer(ch.BatchWriter(), ch.Samples(), &storage.SampleBufferConfig{
			BatchSize:     cfg.Samples.ClickHouse.BatchSize,
			FlushInterval: mustDuration(cfg.Samples.ClickHouse.FlushInterval),
		})
		defer buf.Close()

		samples = buf
		checkers = append(checkers, health.NewPingChecker("clickhouse", ch))
		log.Printf("sample store: clickhouse %v", cfg.Samples.ClickHouse.Addresses)
	}

	dispatcher, err := newDispatcher(cfg, loc)
	if err != nil {
		return err
	}
	defer dispatcher.Close()

	recorder := ingest.NewService(ingest.Config{
		Samples:       samples,
		Breaches:      store.Breaches(),
		Activations:   store.Activations(),
		Components:    store.Components(),
		Thresholds:    store.Thresholds(),
		Dispatcher:    dispatcher,
		NotifyTimeout: mustDuration(cfg.Notifications.Timeout),
	})

	fetchTimeout := mustDuration(cfg.API.FetchTimeout)
	aligner := timeseries.NewAligner(samples, &timeseries.Options{FetchTimeout: fetchTimeout})
	aggregator := alerting.NewAggregator(store.Breaches(), store.Activations(), store.Components(),
		&alerting.AggregatorOptions{FetchTimeout: fetchTimeout})

	apiServer, err := api.New(&api.Config{
		Address:          cfg.Server.HTTPAddress,
		JWTSecret:        []byte(cfg.API.JWTSecret),
		HTTPTLSEnabled:   cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:  cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:   cfg.Server.TLS.KeyFile,
		RateLimitPerIP:   cfg.API.RateLimitPerIP,
		RateLimitPerUser: cfg.API.RateLimitPerUser,
		QueryTimeout:     mustDuration(cfg.API.QueryTimeout),
		Location:         loc,
		Verbose:          cfg.Verbose,
	}, api.Deps{
		Store:    store,
		Series:   aligner,
		Feeds:    aggregator,
		Recorder: recorder,
	})
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}
	if cfg.API.JWTSecret == "" {
		log.Printf("HERMETIA_JWT_SECRET not set, dashboard API is unauthenticated")
	}

	// MQTT ingestion
	if cfg.MQTT.Enabled {
		mqttCfg := ingest.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
		}
		tlsCfg := &security.ClientTLSConfig{
			CAFile:             cfg.MQTT.TLS.CAFile,
			CertFile:           cfg.MQTT.TLS.CertFile,
			KeyFile:            cfg.MQTT.TLS.KeyFile,
			InsecureSkipVerify: cfg.MQTT.TLS.InsecureSkipVerify,
		}
		if tlsCfg.Enabled() {
			if mqttCfg.TLS, err = security.LoadClientTLS(tlsCfg); err != nil {
				return fmt.Errorf("mqtt tls: %w", err)
			}
		}
		client, err := ingest.NewMQTTClient(mqttCfg)
		if err != nil {
			return err
		}
		sub := ingest.NewSubscriber(client, recorder, mqttCfg)
		if err := sub.Subscribe(); err != nil {
			client.Disconnect(250)
			return fmt.Errorf("mqtt: %w", err)
		}
		defer sub.Close()
		apiServer.RegisterOptionalHealthChecker(health.NewConnectedChecker("mqtt", client.IsConnected))
	}

	for _, c := range checkers {
		apiServer.RegisterHealthChecker(c)
	}

	// Setup signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal %v, shutting down...", sig)
		cancel()
	}()

	// Threshold file
	if cfg.ThresholdFile != "" {
		watcher, err := thresholdfile.NewWatcher(cfg.ThresholdFile, store.Thresholds())
		if err != nil {
			return fmt.Errorf("threshold file: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			watcher.Stop()
			return fmt.Errorf("threshold file: %w", err)
		}
		defer watcher.Stop()
	}

	metrics.SetBuildInfo(config.Version, config.Commit, config.BuildTime)

	log.Printf("starting hermetia-server %s", config.Version)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return apiServer.Run(gctx)
	})
	if cfg.Metrics.Enabled {
		metricsServer := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			return metricsServer.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}

// newDispatcher builds the notification dispatcher. With no webhook
// configured it has no notifiers and Dispatch is a no-op.
func newDispatcher(cfg *Config, loc *time.Location) (*notifier.Dispatcher, error) {
	rl := notifier.DefaultRateLimitConfig()
	if cfg.Notifications.RateLimit > 0 {
		rl.MaxPerWindow = cfg.Notifications.RateLimit
	}
	rl.Window = mustDuration(cfg.Notifications.RateLimitWindow)
	d := notifier.NewDispatcherWithRateLimit(rl)

	if cfg.Notifications.SlackWebhookURL != "" {
		slack, err := notifier.NewSlackNotifier(notifier.SlackConfig{
			WebhookURL: cfg.Notifications.SlackWebhookURL,
			Location:   loc,
		})
		if err != nil {
			return nil, fmt.Errorf("create slack notifier: %w", err)
		}
		d.Register(slack)
		log.Printf("notifications: slack enabled")
	}
	return d, nil
}
