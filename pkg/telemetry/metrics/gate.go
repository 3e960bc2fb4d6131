package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GateMetrics tracks decision engine activity.
//
// Metrics:
//   - mercator_keel_gate_decisions_total: decisions by decision and reason code
//   - mercator_keel_gate_evaluation_duration_seconds: end-to-end evaluation latency
//   - mercator_keel_gate_degraded_evaluations_total: evaluations that fell back
//     to lexical matching after a semantic matcher failure
type GateMetrics struct {
	decisionsTotal     *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	degradedTotal      prometheus.Counter
}

// NewGateMetrics creates and registers gate metrics with the provided registry.
func NewGateMetrics(cfg *Config, registry *prometheus.Registry) *GateMetrics {
	gm := &GateMetrics{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "gate_decisions_total",
				Help:      "Total number of gate decisions by decision and reason code",
			},
			[]string{"decision", "reason"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "gate_evaluation_duration_seconds",
				Help:      "Duration of gate evaluations in seconds",
				Buckets:   cfg.EvaluationDurationBuckets,
			},
		),

		degradedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "gate_degraded_evaluations_total",
				Help:      "Total number of evaluations degraded to lexical matching",
			},
		),
	}

	registry.MustRegister(
		gm.decisionsTotal,
		gm.evaluationDuration,
		gm.degradedTotal,
	)

	return gm
}

// RecordDecision records one gate decision. It implements gate.Metrics.
func (gm *GateMetrics) RecordDecision(decision, reason string, duration time.Duration) {
	gm.decisionsTotal.WithLabelValues(decision, reason).Inc()
	gm.evaluationDuration.Observe(duration.Seconds())
}

// RecordDegraded records one evaluation that fell back to lexical matching.
func (gm *GateMetrics) RecordDegraded() {
	gm.degradedTotal.Inc()
}
