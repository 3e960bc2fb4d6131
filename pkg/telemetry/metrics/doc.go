// Package metrics provides Prometheus metrics collection for Keel.
//
// The Collector owns a registry and the metric subsystems:
//   - gate metrics: decision counts by decision/reason, evaluation latency,
//     degraded-evaluation count
//   - replay metrics: replays served and drift sweep observations
//
// Metrics are exposed in Prometheus exposition format via Handler().
package metrics
