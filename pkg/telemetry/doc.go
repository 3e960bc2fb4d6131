// Package telemetry provides observability for Keel: structured logging
// and Prometheus metrics.
//
// Subpackages:
//   - logging: slog-based structured logging with configurable level/format
//   - metrics: Prometheus metrics for decisions, degradation, and drift
package telemetry
