package storage

// SchemaVersion is the current trace store schema version.
const SchemaVersion = 1

// Schema defines the SQLite schema for evaluation records and their anchor
// snapshot rows. Traces are append-only; no UPDATE or DELETE runs against
// these tables.
const Schema = `
CREATE TABLE IF NOT EXISTS traces (
    id                   INTEGER PRIMARY KEY AUTOINCREMENT,
    request_id           TEXT    NOT NULL DEFAULT '',
    request_summary      TEXT    NOT NULL,
    arousal              TEXT    NOT NULL DEFAULT 'unknown',
    dominance            TEXT    NOT NULL DEFAULT 'unknown',
    profile_id           INTEGER,
    decision             TEXT    NOT NULL,
    reason               TEXT    NOT NULL,
    explanation          TEXT    NOT NULL DEFAULT '',
    next_actions         TEXT    NOT NULL DEFAULT '[]',
    conflicted_anchor_id INTEGER NOT NULL DEFAULT 0,
    matched_anchor_ids   TEXT    NOT NULL DEFAULT '[]',
    max_matched_level    INTEGER NOT NULL DEFAULT 0,
    parent_log_id        INTEGER REFERENCES traces(id),
    acknowledgement      TEXT    NOT NULL DEFAULT '',
    matcher              TEXT    NOT NULL DEFAULT '',
    degraded             INTEGER NOT NULL DEFAULT 0,
    created_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_traces_decision ON traces(decision);
CREATE INDEX IF NOT EXISTS idx_traces_parent   ON traces(parent_log_id);

CREATE TABLE IF NOT EXISTS trace_anchors (
    trace_id  INTEGER NOT NULL REFERENCES traces(id),
    anchor_id INTEGER NOT NULL,
    level     INTEGER NOT NULL,
    scope     TEXT    NOT NULL,
    statement TEXT    NOT NULL,
    triggers  TEXT    NOT NULL DEFAULT '[]',
    hash      TEXT    NOT NULL,
    active    INTEGER NOT NULL,
    matched   INTEGER NOT NULL DEFAULT 0,
    fragments TEXT    NOT NULL DEFAULT '[]',
    PRIMARY KEY (trace_id, anchor_id)
);

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version (idempotent).
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`
