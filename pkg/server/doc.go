// Package server provides the HTTP API for Keel.
//
// Routes:
//   - POST /v1/gate/evaluate      evaluate a request against the anchor set
//   - POST /v1/gate/reframe      re-evaluate a gated request with a reworded summary
//   - POST /v1/gate/acknowledge  proceed past a level-2 gate with recorded consent
//   - GET  /v1/gate/logs         list decision traces
//   - GET  /v1/gate/logs/{id}    fetch one trace with its anchor snapshots
//   - GET  /v1/gate/replay/{id}  replay a trace and report drift
//   - CRUD /v1/anchors, /v1/profiles
//   - GET  /healthz, /metrics
//
// The middleware chain (outermost first) is recovery, logging, request-id.
package server
