package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// KEEL_SECTION_FIELD (e.g., KEEL_SERVER_LISTEN_ADDRESS) and always take
// precedence over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies KEEL_* environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("KEEL_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("KEEL_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("KEEL_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("KEEL_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("KEEL_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}

	// Storage overrides
	if val := os.Getenv("KEEL_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("KEEL_STORAGE_ANCHOR_PATH"); val != "" {
		cfg.Storage.AnchorPath = val
	}
	if val := os.Getenv("KEEL_STORAGE_TRACE_PATH"); val != "" {
		cfg.Storage.TracePath = val
	}
	if val := os.Getenv("KEEL_STORAGE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.BusyTimeout = d
		}
	}

	// Matcher overrides
	if val := os.Getenv("KEEL_MATCHER_STRATEGY"); val != "" {
		cfg.Matcher.Strategy = val
	}
	if val := os.Getenv("KEEL_MATCHER_SCORER_URL"); val != "" {
		cfg.Matcher.ScorerURL = val
	}
	if val := os.Getenv("KEEL_MATCHER_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Matcher.Threshold = f
		}
	}
	if val := os.Getenv("KEEL_MATCHER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Matcher.Timeout = d
		}
	}

	// Seed overrides
	if val := os.Getenv("KEEL_SEED_PATH"); val != "" {
		cfg.Seed.Path = val
	}
	if val := os.Getenv("KEEL_SEED_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Seed.Watch = b
		}
	}

	// Audit overrides
	if val := os.Getenv("KEEL_AUDIT_SCHEDULE"); val != "" {
		cfg.Audit.Schedule = val
	}
	if val := os.Getenv("KEEL_AUDIT_LOOKBACK"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Lookback = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("KEEL_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("KEEL_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("KEEL_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("KEEL_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
