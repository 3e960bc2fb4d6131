// Package storage provides persistence backends for anchors and policy
// profiles.
//
// Two backends implement the Storage interface:
//   - SQLiteStorage: the production backend (WAL mode, busy timeout)
//   - MemoryStorage: an in-memory backend for tests and examples
//
// Writes that change an anchor's policy meaning (edit, archive) execute as a
// single atomic update so a concurrent evaluation never observes a
// half-updated anchor. Reads are cheap and run fully in parallel.
package storage
