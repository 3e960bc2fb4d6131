package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled controls whether metrics are collected and exposed.
	Enabled bool

	// Namespace is the metric name prefix. Default: "mercator"
	Namespace string

	// Subsystem is the metric subsystem. Default: "keel"
	Subsystem string

	// EvaluationDurationBuckets are histogram buckets for evaluation latency
	// in seconds. Defaults are tuned for sub-millisecond lexical evaluation
	// plus the occasional remote semantic call.
	EvaluationDurationBuckets []float64
}

// Collector owns the Prometheus registry and all metric subsystems.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	gateMetrics   *GateMetrics
	replayMetrics *ReplayMetrics
}

// NewCollector creates a new metrics collector with the given configuration
// and registry. If registry is nil, a fresh registry is used.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &Config{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "mercator"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "keel"
	}
	if len(cfg.EvaluationDurationBuckets) == 0 {
		cfg.EvaluationDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.gateMetrics = NewGateMetrics(cfg, registry)
	c.replayMetrics = NewReplayMetrics(cfg, registry)

	return c
}

// Gate returns the gate metric subsystem.
func (c *Collector) Gate() *GateMetrics {
	return c.gateMetrics
}

// Replay returns the replay metric subsystem.
func (c *Collector) Replay() *ReplayMetrics {
	return c.replayMetrics
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
