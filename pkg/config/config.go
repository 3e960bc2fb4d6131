package config

import "time"

// Config is the root configuration for Keel.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Seed      SeedConfig      `yaml:"seed"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// ListenAddress is the host:port to bind (default ":8390").
	ListenAddress string `yaml:"listen_address"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the persistence backends.
type StorageConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// AnchorPath is the SQLite database file for anchors and profiles.
	AnchorPath string `yaml:"anchor_path"`

	// TracePath is the SQLite database file for decision traces.
	TracePath string `yaml:"trace_path"`

	// BusyTimeout is the SQLite busy timeout.
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// MatcherConfig selects and configures the conflict matching strategy.
type MatcherConfig struct {
	// Strategy is "lexical" or "semantic".
	Strategy string `yaml:"strategy"`

	// ScorerURL is the semantic scorer endpoint. Required when the
	// strategy is "semantic".
	ScorerURL string `yaml:"scorer_url"`

	// Threshold is the minimum semantic similarity score counted as a
	// conflict (default 0.60).
	Threshold float64 `yaml:"threshold"`

	// Timeout bounds each semantic scorer call.
	Timeout time.Duration `yaml:"timeout"`
}

// SeedConfig controls anchor seeding from a YAML file.
type SeedConfig struct {
	// Path is the seed file. Empty disables seeding.
	Path string `yaml:"path"`

	// Watch enables re-syncing when the seed file changes on disk.
	Watch bool `yaml:"watch"`

	// DebounceInterval is the quiet period before a change triggers a
	// re-sync.
	DebounceInterval time.Duration `yaml:"debounce_interval"`
}

// AuditConfig controls scheduled drift sweeps.
type AuditConfig struct {
	// Schedule is a cron expression. Empty disables scheduled sweeps.
	Schedule string `yaml:"schedule"`

	// Lookback is how many recent traces each sweep replays.
	Lookback int `yaml:"lookback"`
}

// TelemetryConfig groups observability settings.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `yaml:"level"`

	// Format is "json" or "text".
	Format string `yaml:"format"`

	// AddSource includes file:line in log output.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the scrape endpoint path (default "/metrics").
	Path string `yaml:"path"`

	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}
