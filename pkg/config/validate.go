package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid or inconsistent values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.Storage.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Sprintf("storage.backend must be \"sqlite\" or \"memory\", got %q", cfg.Storage.Backend))
	}
	if cfg.Storage.Backend == "sqlite" {
		if cfg.Storage.AnchorPath == "" {
			errs = append(errs, "storage.anchor_path is required for the sqlite backend")
		}
		if cfg.Storage.TracePath == "" {
			errs = append(errs, "storage.trace_path is required for the sqlite backend")
		}
	}

	switch cfg.Matcher.Strategy {
	case "lexical":
	case "semantic":
		if cfg.Matcher.ScorerURL == "" {
			errs = append(errs, "matcher.scorer_url is required for the semantic strategy")
		}
	default:
		errs = append(errs, fmt.Sprintf("matcher.strategy must be \"lexical\" or \"semantic\", got %q", cfg.Matcher.Strategy))
	}
	if cfg.Matcher.Threshold < 0 || cfg.Matcher.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("matcher.threshold must be in [0, 1], got %g", cfg.Matcher.Threshold))
	}

	if cfg.Seed.Watch && cfg.Seed.Path == "" {
		errs = append(errs, "seed.watch requires seed.path")
	}

	if cfg.Audit.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Audit.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("audit.schedule is not a valid cron expression: %v", err))
		}
	}
	if cfg.Audit.Lookback < 0 {
		errs = append(errs, fmt.Sprintf("audit.lookback must be non-negative, got %d", cfg.Audit.Lookback))
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.level must be one of debug, info, warn, error, got %q", cfg.Telemetry.Logging.Level))
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Sprintf("telemetry.logging.format must be \"json\" or \"text\", got %q", cfg.Telemetry.Logging.Format))
	}

	if cfg.Telemetry.Metrics.Enabled && !strings.HasPrefix(cfg.Telemetry.Metrics.Path, "/") {
		errs = append(errs, fmt.Sprintf("telemetry.metrics.path must start with \"/\", got %q", cfg.Telemetry.Metrics.Path))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
