package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
input:
  workbook: units.xlsx
  denylist: ["SCUBA"]
store:
  dir: /tmp/unitscout
sync:
  workers: 4
  max_retries: 2
  max_jitter_ms: 100
fetch:
  base_url: https://example.org/details
  user_agent: scout-agent
  min_interval_ms: 1500
  max_attempts: 5
  base_backoff_ms: 250
  render_timeout_seconds: 40
  marker_timeout_seconds: 3
  marker_selector: "h1.title"
  host_qps: 0.5
  probe_enabled: false
  probe_min_bytes: 4096
  not_found_markers: ["no longer available"]
logging:
  development: false
  level: warn
report:
  output: out.xlsx
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Input.Workbook != "units.xlsx" || len(cfg.Input.Denylist) != 1 {
		t.Fatalf("expected input overrides to apply: %+v", cfg.Input)
	}
	if cfg.Store.Dir != "/tmp/unitscout" {
		t.Fatalf("expected store dir override, got %q", cfg.Store.Dir)
	}
	if cfg.Sync.Workers != 4 || cfg.Sync.MaxRetries != 2 {
		t.Fatalf("expected sync overrides to apply: %+v", cfg.Sync)
	}
	if cfg.Fetch.BaseURL != "https://example.org/details" || cfg.Fetch.HostQPS != 0.5 {
		t.Fatalf("expected fetch overrides to apply: %+v", cfg.Fetch)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "warn" {
		t.Fatalf("expected logging overrides to apply: %+v", cfg.Logging)
	}

	ec := cfg.EngineConfig()
	if ec.MinInterval != 1500*time.Millisecond {
		t.Fatalf("expected min interval 1.5s, got %v", ec.MinInterval)
	}
	if ec.MaxAttempts != 5 || ec.BaseBackoff != 250*time.Millisecond {
		t.Fatalf("expected retry settings to carry over: %+v", ec)
	}
	if ec.RenderTimeout != 40*time.Second || ec.MarkerSelector != "h1.title" {
		t.Fatalf("expected render settings to carry over: %+v", ec)
	}
	if ec.ProbeEnabled {
		t.Fatalf("expected probe to be disabled")
	}

	sc := cfg.SchedulerConfig()
	if sc.Workers != 4 || sc.BaseURL != "https://example.org/details" {
		t.Fatalf("expected scheduler settings to carry over: %+v", sc)
	}
	if sc.MaxJitter != 100*time.Millisecond {
		t.Fatalf("expected jitter 100ms, got %v", sc.MaxJitter)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sync.Workers != 3 || cfg.Sync.MaxRetries != 3 {
		t.Fatalf("expected default sync settings: %+v", cfg.Sync)
	}
	if cfg.Fetch.MaxAttempts != 3 || cfg.Fetch.MinIntervalMs != 1000 {
		t.Fatalf("expected default fetch settings: %+v", cfg.Fetch)
	}
	if !cfg.Fetch.ProbeEnabled {
		t.Fatalf("expected probe enabled by default")
	}
	if cfg.Store.Dir != "data" {
		t.Fatalf("expected default store dir, got %q", cfg.Store.Dir)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Store: StoreConfig{Dir: "data"},
		Sync:  SyncConfig{Workers: 1},
		Fetch: FetchConfig{
			BaseURL:          "https://example.org",
			MaxAttempts:      3,
			RenderTimeoutSec: 25,
			HostQPS:          1,
		},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing store dir",
			cfg: func() Config {
				c := base
				c.Store.Dir = ""
				return c
			}(),
			want: "store.dir",
		},
		{
			name: "invalid workers",
			cfg: func() Config {
				c := base
				c.Sync.Workers = 0
				return c
			}(),
			want: "sync.workers",
		},
		{
			name: "negative retries",
			cfg: func() Config {
				c := base
				c.Sync.MaxRetries = -1
				return c
			}(),
			want: "sync.max_retries",
		},
		{
			name: "missing base url",
			cfg: func() Config {
				c := base
				c.Fetch.BaseURL = ""
				return c
			}(),
			want: "fetch.base_url",
		},
		{
			name: "invalid attempts",
			cfg: func() Config {
				c := base
				c.Fetch.MaxAttempts = 0
				return c
			}(),
			want: "fetch.max_attempts",
		},
		{
			name: "invalid render timeout",
			cfg: func() Config {
				c := base
				c.Fetch.RenderTimeoutSec = 0
				return c
			}(),
			want: "fetch.render_timeout_seconds",
		},
		{
			name: "invalid host qps",
			cfg: func() Config {
				c := base
				c.Fetch.HostQPS = 0
				return c
			}(),
			want: "fetch.host_qps",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
