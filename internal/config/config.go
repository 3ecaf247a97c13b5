// Package config loads and validates sync pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/unitscout/unitscout/internal/fetch"
	"github.com/unitscout/unitscout/internal/scheduler"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Input   InputConfig   `mapstructure:"input"`
	Store   StoreConfig   `mapstructure:"store"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Report  ReportConfig  `mapstructure:"report"`
}

// InputConfig points at the spreadsheet holding candidate identifiers.
type InputConfig struct {
	Workbook string   `mapstructure:"workbook"`
	Denylist []string `mapstructure:"denylist"`
}

// StoreConfig sets the directory holding the corpus and classification log.
type StoreConfig struct {
	Dir string `mapstructure:"dir"`
}

// SyncConfig governs planner and scheduler behavior.
type SyncConfig struct {
	Workers     int `mapstructure:"workers"`
	MaxRetries  int `mapstructure:"max_retries"`
	MaxJitterMs int `mapstructure:"max_jitter_ms"`
}

// FetchConfig configures the fetch engine: politeness, retries, rendering.
type FetchConfig struct {
	BaseURL          string   `mapstructure:"base_url"`
	UserAgent        string   `mapstructure:"user_agent"`
	MinIntervalMs    int      `mapstructure:"min_interval_ms"`
	MaxAttempts      int      `mapstructure:"max_attempts"`
	BaseBackoffMs    int      `mapstructure:"base_backoff_ms"`
	RenderTimeoutSec int      `mapstructure:"render_timeout_seconds"`
	MarkerTimeoutSec int      `mapstructure:"marker_timeout_seconds"`
	MarkerSelector   string   `mapstructure:"marker_selector"`
	HostQPS          float64  `mapstructure:"host_qps"`
	ProbeEnabled     bool     `mapstructure:"probe_enabled"`
	ProbeMinBytes    int      `mapstructure:"probe_min_bytes"`
	NotFoundMarkers  []string `mapstructure:"not_found_markers"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// MetricsConfig controls the optional Prometheus exposition endpoint.
// An empty addr disables the listener.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// ReportConfig sets the default path for workbook exports.
type ReportConfig struct {
	Output string `mapstructure:"output"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("UNITSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.dir", "data")
	v.SetDefault("sync.workers", 3)
	v.SetDefault("sync.max_retries", 3)
	v.SetDefault("sync.max_jitter_ms", 400)
	v.SetDefault("fetch.base_url", "https://training.gov.au/training/details")
	v.SetDefault("fetch.user_agent", "unitscout/0.1")
	v.SetDefault("fetch.min_interval_ms", 1000)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.base_backoff_ms", 500)
	v.SetDefault("fetch.render_timeout_seconds", 25)
	v.SetDefault("fetch.marker_timeout_seconds", 5)
	v.SetDefault("fetch.marker_selector", "h1")
	v.SetDefault("fetch.host_qps", 1.0)
	v.SetDefault("fetch.probe_enabled", true)
	v.SetDefault("fetch.probe_min_bytes", 2048)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("report.output", "unitscout-report.xlsx")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Store.Dir == "" {
		return fmt.Errorf("store.dir must be set")
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("sync.workers must be > 0")
	}
	if c.Sync.MaxRetries < 0 {
		return fmt.Errorf("sync.max_retries must be >= 0")
	}
	if c.Fetch.BaseURL == "" {
		return fmt.Errorf("fetch.base_url must be set")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be > 0")
	}
	if c.Fetch.RenderTimeoutSec <= 0 {
		return fmt.Errorf("fetch.render_timeout_seconds must be > 0")
	}
	if c.Fetch.HostQPS <= 0 {
		return fmt.Errorf("fetch.host_qps must be > 0")
	}
	return nil
}

// EngineConfig converts the fetch section into the engine's configuration.
func (c Config) EngineConfig() fetch.Config {
	return fetch.Config{
		UserAgent:       c.Fetch.UserAgent,
		MinInterval:     time.Duration(c.Fetch.MinIntervalMs) * time.Millisecond,
		MaxAttempts:     c.Fetch.MaxAttempts,
		BaseBackoff:     time.Duration(c.Fetch.BaseBackoffMs) * time.Millisecond,
		RenderTimeout:   time.Duration(c.Fetch.RenderTimeoutSec) * time.Second,
		MarkerTimeout:   time.Duration(c.Fetch.MarkerTimeoutSec) * time.Second,
		MarkerSelector:  c.Fetch.MarkerSelector,
		NotFoundMarkers: c.Fetch.NotFoundMarkers,
		HostQPS:         c.Fetch.HostQPS,
		ProbeEnabled:    c.Fetch.ProbeEnabled,
		ProbeMinBytes:   c.Fetch.ProbeMinBytes,
	}
}

// SchedulerConfig converts the sync section into the scheduler's configuration.
func (c Config) SchedulerConfig() scheduler.Config {
	return scheduler.Config{
		Workers:   c.Sync.Workers,
		BaseURL:   c.Fetch.BaseURL,
		MaxJitter: time.Duration(c.Sync.MaxJitterMs) * time.Millisecond,
	}
}
