// Package source seeds the anchor store from YAML files on disk.
//
// A seed file declares anchors and profiles. Syncing is additive and
// idempotent: anchors are keyed by content hash, so re-syncing an unchanged
// file creates nothing, while editing a statement in the file produces a new
// anchor alongside the old one (the store never mutates history on behalf of
// a file edit). Profiles are keyed by name.
//
// The Watcher reloads the seed file on change with debouncing, so a config
// repo checkout can drive the anchor set without restarts.
package source
