// Package main provides the Hermetia server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/hermetia/internal/models"
)

// Sample backends.
const (
	backendSQLite     = "sqlite"
	backendClickHouse = "clickhouse"
)

// Config represents the server configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Samples       SamplesConfig       `yaml:"samples"`
	API           APIConfig           `yaml:"api"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	Notifications NotificationsConfig `yaml:"notifications"`
	ThresholdFile string              `yaml:"threshold_file"` // optional thresholds YAML, reloaded on change
	Components    []ComponentConfig   `yaml:"components"`
	Verbose       bool                `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	HTTPAddress string    `yaml:"http_address"` // HTTP listen address (default: :8080)
	TLS         TLSConfig `yaml:"tls"`
}

// TLSConfig contains HTTPS settings for the API listener.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // default: ./data/hermetia.db
}

// SamplesConfig selects where sensor samples are stored.
type SamplesConfig struct {
	Backend    string           `yaml:"backend"` // sqlite or clickhouse
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// ClickHouseConfig contains ClickHouse sample store settings.
// The password comes from HERMETIA_CLICKHOUSE_PASSWORD.
type ClickHouseConfig struct {
	Addresses     []string `yaml:"addresses"`
	Database      string   `yaml:"database"`
	Username      string   `yaml:"username"`
	RetentionDays int      `yaml:"retention_days"`
	Compression   bool     `yaml:"compression"`
	BatchSize     int      `yaml:"batch_size"`
	FlushInterval string   `yaml:"flush_interval"`
	Password      string   `yaml:"-"`
}

// APIConfig contains dashboard API settings. The JWT secret comes from
// HERMETIA_JWT_SECRET; when empty the API is open.
type APIConfig struct {
	RateLimitPerIP   int    `yaml:"rate_limit_per_ip"`
	RateLimitPerUser int    `yaml:"rate_limit_per_user"`
	QueryTimeout     string `yaml:"query_timeout"`
	FetchTimeout     string `yaml:"fetch_timeout"`
	Timezone         string `yaml:"timezone"`
	JWTSecret        string `yaml:"-"`
}

// MetricsConfig contains the Prometheus listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // default: :9090
}

// MQTTConfig contains broker settings. The password comes from
// HERMETIA_MQTT_PASSWORD.
type MQTTConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Broker      string        `yaml:"broker"`
	ClientID    string        `yaml:"client_id"`
	Username    string        `yaml:"username"`
	TopicPrefix string        `yaml:"topic_prefix"`
	QoS         int           `yaml:"qos"`
	TLS         MQTTTLSConfig `yaml:"tls"`
	Password    string        `yaml:"-"`
}

// MQTTTLSConfig contains broker TLS settings.
type MQTTTLSConfig struct {
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// NotificationsConfig contains push notification settings.
type NotificationsConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
	RateLimit       int    `yaml:"rate_limit"`        // notifications per alert source per window
	RateLimitWindow string `yaml:"rate_limit_window"` // default: 15m
	Timeout         string `yaml:"timeout"`           // default: 10s
}

// ComponentConfig seeds one component on startup.
type ComponentConfig struct {
	ID     int    `yaml:"id"`
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Active *bool  `yaml:"active"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/hermetia.db"
	}
	if c.Samples.Backend == "" {
		c.Samples.Backend = backendSQLite
	}
	if c.Samples.Backend == backendClickHouse {
		if len(c.Samples.ClickHouse.Addresses) == 0 {
			c.Samples.ClickHouse.Addresses = []string{"localhost:9000"}
		}
		if c.Samples.ClickHouse.Database == "" {
			c.Samples.ClickHouse.Database = "hermetia"
		}
		if c.Samples.ClickHouse.FlushInterval == "" {
			c.Samples.ClickHouse.FlushInterval = "2s"
		}
	}
	if c.API.QueryTimeout == "" {
		c.API.QueryTimeout = "10s"
	}
	if c.API.FetchTimeout == "" {
		c.API.FetchTimeout = "5s"
	}
	if c.API.Timezone == "" {
		c.API.Timezone = "UTC"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "hermetia-server"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "incubator"
	}
	if c.Notifications.RateLimitWindow == "" {
		c.Notifications.RateLimitWindow = "15m"
	}
	if c.Notifications.Timeout == "" {
		c.Notifications.Timeout = "10s"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Server.TLS.Enabled {
		if c.Server.TLS.CertFile == "" {
			return fmt.Errorf("server.tls.cert_file is required when TLS is enabled")
		}
		if c.Server.TLS.KeyFile == "" {
			return fmt.Errorf("server.tls.key_file is required when TLS is enabled")
		}
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Samples.Backend {
	case backendSQLite:
	case backendClickHouse:
		if len(c.Samples.ClickHouse.Addresses) == 0 {
			return fmt.Errorf("samples.clickhouse.addresses is required")
		}
		if err := validateDuration("samples.clickhouse.flush_interval", c.Samples.ClickHouse.FlushInterval); err != nil {
			return err
		}
	default:
		return fmt.Errorf("samples.backend must be %q or %q, got %q", backendSQLite, backendClickHouse, c.Samples.Backend)
	}

	if c.API.RateLimitPerIP < 0 || c.API.RateLimitPerUser < 0 {
		return fmt.Errorf("api rate limits must not be negative")
	}
	if err := validateDuration("api.query_timeout", c.API.QueryTimeout); err != nil {
		return err
	}
	if err := validateDuration("api.fetch_timeout", c.API.FetchTimeout); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.API.Timezone); err != nil {
		return fmt.Errorf("api.timezone: %w", err)
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when MQTT is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
		if (c.MQTT.TLS.CertFile == "") != (c.MQTT.TLS.KeyFile == "") {
			return fmt.Errorf("mqtt.tls.cert_file and mqtt.tls.key_file must be set together")
		}
	}

	if c.Notifications.RateLimit < 0 {
		return fmt.Errorf("notifications.rate_limit must not be negative")
	}
	if err := validateDuration("notifications.rate_limit_window", c.Notifications.RateLimitWindow); err != nil {
		return err
	}
	if err := validateDuration("notifications.timeout", c.Notifications.Timeout); err != nil {
		return err
	}

	seen := make(map[int]bool, len(c.Components))
	for i, comp := range c.Components {
		if comp.ID <= 0 {
			return fmt.Errorf("components[%d].id must be positive", i)
		}
		if seen[comp.ID] {
			return fmt.Errorf("components[%d]: duplicate id %d", i, comp.ID)
		}
		seen[comp.ID] = true
		if _, err := models.ParseComponentKind(comp.Kind); err != nil {
			return fmt.Errorf("components[%d]: %w", i, err)
		}
	}
	return nil
}

// ApplyEnv reads secrets from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("HERMETIA_JWT_SECRET"); v != "" {
		c.API.JWTSecret = v
	}
	if v := os.Getenv("HERMETIA_MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("HERMETIA_CLICKHOUSE_PASSWORD"); v != "" {
		c.Samples.ClickHouse.Password = v
	}
}

// seedComponents converts the configured components to models.
// Validate must have passed.
func (c *Config) seedComponents() []*models.Component {
	out := make([]*models.Component, 0, len(c.Components))
	for _, comp := range c.Components {
		kind, _ := models.ParseComponentKind(comp.Kind)
		active := true
		if comp.Active != nil {
			active = *comp.Active
		}
		name := comp.Name
		if name == "" {
			name = fmt.Sprintf("%s %d", kind, comp.ID)
		}
		out = append(out, &models.Component{
			ID:          comp.ID,
			DisplayName: name,
			Kind:        kind,
			Active:      active,
		})
	}
	return out
}

func validateDuration(field, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

// mustDuration parses a duration that Validate already accepted.
func mustDuration(value string) time.Duration {
	d, _ := time.ParseDuration(value)
	return d
}
