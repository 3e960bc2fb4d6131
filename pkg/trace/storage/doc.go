// Package storage provides persistence backends for evaluation records.
//
// Records are append-only audit facts: Insert is the only write, and it
// persists the record plus all its anchor snapshots in a single transaction
// so two concurrent evaluations never collide on a trace identifier or
// interleave snapshot writes. There is no update and no delete.
package storage
