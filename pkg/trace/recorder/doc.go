// Package recorder turns decision-engine output into immutable evaluation
// records. It is the only path by which records are created: it snapshots
// every anchor the engine considered and persists record plus snapshots in
// one atomic write, so the trace either exists completely or not at all.
//
// Unlike an asynchronous audit pipeline, recording here sits on the request
// path: the allocated trace id is part of the caller's response (it is what
// reframe, acknowledge, and replay reference), so the write completes before
// the decision is returned.
package recorder
