package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.ListenAddress != ":8390" {
		t.Errorf("listen address = %q, want :8390", cfg.Server.ListenAddress)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Matcher.Strategy != "lexical" {
		t.Errorf("strategy = %q, want lexical", cfg.Matcher.Strategy)
	}
	if cfg.Matcher.Threshold != 0.60 {
		t.Errorf("threshold = %g, want 0.60", cfg.Matcher.Threshold)
	}
	if cfg.Audit.Lookback != 100 {
		t.Errorf("lookback = %d, want 100", cfg.Audit.Lookback)
	}
	if cfg.Telemetry.Logging.Level != "info" || cfg.Telemetry.Logging.Format != "json" {
		t.Errorf("logging defaults = %q/%q", cfg.Telemetry.Logging.Level, cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Namespace != "mercator" || cfg.Telemetry.Metrics.Subsystem != "keel" {
		t.Errorf("metrics naming = %q/%q", cfg.Telemetry.Metrics.Namespace, cfg.Telemetry.Metrics.Subsystem)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default configuration should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: ":9000"
  read_timeout: 5s
storage:
  backend: memory
matcher:
  strategy: semantic
  scorer_url: http://localhost:9100/score
  threshold: 0.75
audit:
  schedule: "0 3 * * *"
telemetry:
  logging:
    level: debug
    format: text
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":9000" {
		t.Errorf("listen address = %q, want :9000", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("read timeout = %s, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("backend = %q, want memory", cfg.Storage.Backend)
	}
	if cfg.Matcher.Strategy != "semantic" || cfg.Matcher.Threshold != 0.75 {
		t.Errorf("matcher = %q/%g", cfg.Matcher.Strategy, cfg.Matcher.Threshold)
	}
	if cfg.Audit.Schedule != "0 3 * * *" {
		t.Errorf("schedule = %q", cfg.Audit.Schedule)
	}

	// Unspecified fields still get defaults.
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("write timeout = %s, want default 30s", cfg.Server.WriteTimeout)
	}
	if cfg.Telemetry.Metrics.Path != "/metrics" {
		t.Errorf("metrics path = %q, want /metrics", cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfigFile(t, "server: [not a mapping")

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
server:
  listen_address: ":9000"
storage:
  backend: memory
`)

	t.Setenv("KEEL_SERVER_LISTEN_ADDRESS", ":7777")
	t.Setenv("KEEL_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("KEEL_STORAGE_BACKEND", "sqlite")
	t.Setenv("KEEL_STORAGE_ANCHOR_PATH", "/var/lib/keel/anchors.db")
	t.Setenv("KEEL_STORAGE_TRACE_PATH", "/var/lib/keel/traces.db")
	t.Setenv("KEEL_MATCHER_THRESHOLD", "0.8")
	t.Setenv("KEEL_AUDIT_LOOKBACK", "250")
	t.Setenv("KEEL_TELEMETRY_METRICS_ENABLED", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides failed: %v", err)
	}

	if cfg.Server.ListenAddress != ":7777" {
		t.Errorf("env override lost: listen address = %q", cfg.Server.ListenAddress)
	}
	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("read timeout = %s, want 45s", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.Backend != "sqlite" || cfg.Storage.AnchorPath != "/var/lib/keel/anchors.db" {
		t.Errorf("storage override lost: %+v", cfg.Storage)
	}
	if cfg.Matcher.Threshold != 0.8 {
		t.Errorf("threshold = %g, want 0.8", cfg.Matcher.Threshold)
	}
	if cfg.Audit.Lookback != 250 {
		t.Errorf("lookback = %d, want 250", cfg.Audit.Lookback)
	}
	if !cfg.Telemetry.Metrics.Enabled {
		t.Error("metrics enabled override lost")
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	path := writeConfigFile(t, "storage:\n  backend: memory\n")

	t.Setenv("KEEL_STORAGE_BACKEND", "postgres")

	if _, err := LoadConfigWithEnvOverrides(path); err == nil {
		t.Error("expected validation to reject the override")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{
			name:   "unknown backend",
			mutate: func(c *Config) { c.Storage.Backend = "postgres" },
			want:   "storage.backend",
		},
		{
			name: "sqlite without anchor path",
			mutate: func(c *Config) {
				c.Storage.AnchorPath = ""
			},
			want: "storage.anchor_path",
		},
		{
			name:   "unknown strategy",
			mutate: func(c *Config) { c.Matcher.Strategy = "vibes" },
			want:   "matcher.strategy",
		},
		{
			name:   "semantic without scorer url",
			mutate: func(c *Config) { c.Matcher.Strategy = "semantic" },
			want:   "matcher.scorer_url",
		},
		{
			name:   "threshold out of range",
			mutate: func(c *Config) { c.Matcher.Threshold = 1.5 },
			want:   "matcher.threshold",
		},
		{
			name:   "watch without path",
			mutate: func(c *Config) { c.Seed.Watch = true },
			want:   "seed.watch",
		},
		{
			name:   "bad cron expression",
			mutate: func(c *Config) { c.Audit.Schedule = "every tuesday" },
			want:   "audit.schedule",
		},
		{
			name:   "negative lookback",
			mutate: func(c *Config) { c.Audit.Lookback = -1 },
			want:   "audit.lookback",
		},
		{
			name:   "bad log level",
			mutate: func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			want:   "telemetry.logging.level",
		},
		{
			name: "metrics path without slash",
			mutate: func(c *Config) {
				c.Telemetry.Metrics.Enabled = true
				c.Telemetry.Metrics.Path = "metrics"
			},
			want: "telemetry.metrics.path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Backend = "postgres"
	cfg.Matcher.Strategy = "vibes"
	cfg.Audit.Lookback = -5

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"storage.backend", "matcher.strategy", "audit.lookback"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %q", want, err.Error())
		}
	}
}
