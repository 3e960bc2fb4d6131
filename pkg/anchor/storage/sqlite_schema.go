package storage

// SchemaVersion is the current policy store schema version.
const SchemaVersion = 1

// Schema defines the SQLite schema for anchors, profiles, and membership.
const Schema = `
CREATE TABLE IF NOT EXISTS anchors (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    level      INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
    scope      TEXT    NOT NULL DEFAULT 'global',
    statement  TEXT    NOT NULL,
    triggers   TEXT    NOT NULL DEFAULT '[]',
    active     INTEGER NOT NULL DEFAULT 1,
    hash       TEXT    NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_anchors_active ON anchors(active);
CREATE INDEX IF NOT EXISTS idx_anchors_scope  ON anchors(scope);

CREATE TABLE IF NOT EXISTS profiles (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT    NOT NULL UNIQUE,
    description TEXT    NOT NULL DEFAULT '',
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS profile_anchors (
    profile_id INTEGER NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    anchor_id  INTEGER NOT NULL REFERENCES anchors(id)  ON DELETE CASCADE,
    position   INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (profile_id, anchor_id)
);

CREATE INDEX IF NOT EXISTS idx_profile_anchors_profile ON profile_anchors(profile_id);

CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// InsertSchemaVersion records the schema version (idempotent).
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion retrieves the latest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version;`
