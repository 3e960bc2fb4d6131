// Keel is a deterministic boundary-enforcement engine.
//
// It evaluates natural-language request summaries against a programmable set
// of anchors (leveled policy statements), classifies the caller's control
// state, and issues proceed/gate decisions with machine-readable reason
// codes. Every decision is recorded as an immutable trace with anchor
// snapshots, so past decisions can be replayed bit-for-bit and policy drift
// surfaced.
//
// Usage:
//
//	# Start the server with default configuration
//	keel run
//
//	# Start with a custom configuration file
//	keel run --config /path/to/config.yaml
//
//	# Show version information
//	keel version
//
//	# List anchors
//	keel anchors list
//
//	# Replay a decision trace and report drift
//	keel replay 42
//
//	# Run a one-off drift sweep over recent traces
//	keel audit sweep
package main

func main() {
	Execute()
}
