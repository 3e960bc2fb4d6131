package config

import "time"

// DefaultConfig returns a fully populated configuration with defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in zero-valued fields with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = ":8390"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "sqlite"
	}
	if cfg.Storage.AnchorPath == "" {
		cfg.Storage.AnchorPath = "data/anchors.db"
	}
	if cfg.Storage.TracePath == "" {
		cfg.Storage.TracePath = "data/traces.db"
	}
	if cfg.Storage.BusyTimeout == 0 {
		cfg.Storage.BusyTimeout = 5 * time.Second
	}

	if cfg.Matcher.Strategy == "" {
		cfg.Matcher.Strategy = "lexical"
	}
	if cfg.Matcher.Threshold == 0 {
		cfg.Matcher.Threshold = 0.60
	}
	if cfg.Matcher.Timeout == 0 {
		cfg.Matcher.Timeout = 2 * time.Second
	}

	if cfg.Seed.DebounceInterval == 0 {
		cfg.Seed.DebounceInterval = 250 * time.Millisecond
	}

	if cfg.Audit.Lookback == 0 {
		cfg.Audit.Lookback = 100
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}

	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "mercator"
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = "keel"
	}
}
