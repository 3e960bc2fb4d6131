// Package audit runs scheduled drift sweeps: it periodically replays recent
// traces and surfaces policy drift in logs and metrics, so an anchor edit
// that silently changes the meaning of past decisions is noticed without
// anyone manually replaying traces. Sweeps are read-only.
package audit
