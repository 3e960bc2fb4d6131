// Package replay reconstructs past decisions and reports policy drift.
//
// Replaying a trace re-runs the pure decision function over the trace's
// stored anchor snapshots, not live anchors, which must reproduce the
// original decision exactly (a mismatch is a correctness bug, not drift).
// The snapshots are then diffed against the live anchor store to collect
// drift entries, and the decision is recomputed a second time against the
// live, re-resolved anchor set to show what would happen today.
//
// Replay performs no writes; it is a read-only diagnostic.
//
// Replay always recomputes with the lexical strategy, even when the original
// evaluation used the semantic matcher: replay determinism cannot depend on
// a remote model. The trace's matcher field shows when the original decision
// was made in reduced-determinism mode.
package replay
