package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReplayMetrics tracks trace replay and drift sweep activity.
//
// Metrics:
//   - mercator_keel_replays_total: replays served, by whether drift was found
//   - mercator_keel_drift_sweeps_total: completed scheduled drift sweeps
//   - mercator_keel_drift_sweep_traces: traces examined by the last sweep
//   - mercator_keel_drift_sweep_drifted: drifted traces found by the last sweep
//   - mercator_keel_drift_sweep_changed_decisions: traces whose decision would
//     change today, per the last sweep
type ReplayMetrics struct {
	replaysTotal     *prometheus.CounterVec
	sweepsTotal      prometheus.Counter
	sweepTraces      prometheus.Gauge
	sweepDrifted     prometheus.Gauge
	sweepChangedDecs prometheus.Gauge
}

// NewReplayMetrics creates and registers replay metrics with the provided registry.
func NewReplayMetrics(cfg *Config, registry *prometheus.Registry) *ReplayMetrics {
	rm := &ReplayMetrics{
		replaysTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "replays_total",
				Help:      "Total number of trace replays by drift outcome",
			},
			[]string{"drifted"},
		),

		sweepsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "drift_sweeps_total",
				Help:      "Total number of completed drift sweeps",
			},
		),

		sweepTraces: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "drift_sweep_traces",
				Help:      "Traces examined by the most recent drift sweep",
			},
		),

		sweepDrifted: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "drift_sweep_drifted",
				Help:      "Drifted traces found by the most recent drift sweep",
			},
		),

		sweepChangedDecs: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "drift_sweep_changed_decisions",
				Help:      "Traces whose decision would change today, per the most recent drift sweep",
			},
		),
	}

	registry.MustRegister(
		rm.replaysTotal,
		rm.sweepsTotal,
		rm.sweepTraces,
		rm.sweepDrifted,
		rm.sweepChangedDecs,
	)

	return rm
}

// RecordReplay records one served replay.
func (rm *ReplayMetrics) RecordReplay(drifted bool) {
	label := "false"
	if drifted {
		label = "true"
	}
	rm.replaysTotal.WithLabelValues(label).Inc()
}

// RecordDriftSweep records the outcome of one drift sweep. It implements
// audit.Metrics.
func (rm *ReplayMetrics) RecordDriftSweep(traces, drifted, changedDecisions int) {
	rm.sweepsTotal.Inc()
	rm.sweepTraces.Set(float64(traces))
	rm.sweepDrifted.Set(float64(drifted))
	rm.sweepChangedDecs.Set(float64(changedDecisions))
}
