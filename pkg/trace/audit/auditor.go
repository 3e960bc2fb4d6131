package audit

import (
	"context"
	"log/slog"

	"mercator-hq/keel/pkg/trace"
	"mercator-hq/keel/pkg/trace/replay"
	"mercator-hq/keel/pkg/trace/storage"
)

// Config contains configuration for the drift auditor.
type Config struct {
	// Schedule is a cron expression for sweep timing (e.g. "0 3 * * *").
	// Empty disables scheduled sweeps.
	Schedule string

	// Lookback is how many recent traces each sweep replays.
	// Default: 100
	Lookback int
}

// DefaultConfig returns the default auditor configuration.
func DefaultConfig() *Config {
	return &Config{
		Lookback: 100,
	}
}

// Metrics receives sweep observations. A nil Metrics is valid.
type Metrics interface {
	RecordDriftSweep(traces, drifted, changedDecisions int)
}

// Summary is the result of one drift sweep.
type Summary struct {
	Traces           int `json:"traces"`
	Drifted          int `json:"drifted"`
	ChangedDecisions int `json:"changed_decisions"`
	Failed           int `json:"failed"`
}

// Auditor replays recent traces and reports drift.
type Auditor struct {
	replayer *replay.Replayer
	traces   storage.Storage
	config   *Config
	metrics  Metrics
	logger   *slog.Logger
}

// NewAuditor creates a new drift auditor.
func NewAuditor(replayer *replay.Replayer, traces storage.Storage, config *Config) *Auditor {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Lookback <= 0 {
		config.Lookback = DefaultConfig().Lookback
	}
	return &Auditor{
		replayer: replayer,
		traces:   traces,
		config:   config,
		logger:   slog.Default().With("component", "trace.audit"),
	}
}

// SetMetrics attaches a metrics sink. Safe to leave unset.
func (a *Auditor) SetMetrics(m Metrics) {
	a.metrics = m
}

// Sweep replays the most recent traces and summarizes drift.
func (a *Auditor) Sweep(ctx context.Context) (*Summary, error) {
	records, err := a.traces.List(ctx, &trace.Query{Limit: a.config.Lookback})
	if err != nil {
		return nil, err
	}

	summary := &Summary{Traces: len(records)}
	for _, rec := range records {
		report, err := a.replayer.Replay(ctx, rec.ID)
		if err != nil {
			summary.Failed++
			a.logger.Warn("drift sweep replay failed",
				"trace_id", rec.ID,
				"error", err,
			)
			continue
		}

		if len(report.Drift) > 0 {
			summary.Drifted++
			a.logger.Info("policy drift detected",
				"trace_id", rec.ID,
				"drift_entries", len(report.Drift),
				"same_decision", report.SameDecision,
			)
		}
		if !report.SameDecision {
			summary.ChangedDecisions++
		}
	}

	if a.metrics != nil {
		a.metrics.RecordDriftSweep(summary.Traces, summary.Drifted, summary.ChangedDecisions)
	}

	a.logger.Info("drift sweep completed",
		"traces", summary.Traces,
		"drifted", summary.Drifted,
		"changed_decisions", summary.ChangedDecisions,
		"failed", summary.Failed,
	)

	return summary, nil
}
