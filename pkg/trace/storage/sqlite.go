package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/keel/pkg/anchor"
	"mercator-hq/keel/pkg/trace"
)

// SQLiteConfig contains configuration for the SQLite trace store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/traces.db",
		MaxOpenConns: 10,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite trace store.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "trace.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("trace store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and pragmas.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return trace.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return trace.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return trace.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return trace.NewStorageError("sqlite", "insert_schema_version", err)
	}

	return nil
}

// Insert persists a record and its snapshots in a single transaction,
// allocating the next monotonic trace id from the AUTOINCREMENT sequence.
func (s *SQLiteStorage) Insert(ctx context.Context, rec *trace.Record) (*trace.Record, error) {
	nextActions, err := json.Marshal(orEmpty(rec.NextActions))
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "insert", err)
	}
	matchedIDs, err := json.Marshal(orEmptyIDs(rec.MatchedAnchorIDs))
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "insert", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "insert", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO traces (
			request_id, request_summary, arousal, dominance, profile_id,
			decision, reason, explanation, next_actions,
			conflicted_anchor_id, matched_anchor_ids, max_matched_level,
			parent_log_id, acknowledgement, matcher, degraded, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Summary, rec.Arousal, rec.Dominance, rec.ProfileID,
		rec.Decision, rec.Reason, rec.Explanation, string(nextActions),
		rec.ConflictedAnchorID, string(matchedIDs), rec.MaxMatchedLevel,
		rec.ParentID, rec.Acknowledgement, rec.Matcher, rec.Degraded, now,
	)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "insert", err)
	}

	for _, snap := range rec.Snapshots {
		triggers, err := json.Marshal(orEmpty(snap.Triggers))
		if err != nil {
			return nil, trace.NewStorageError("sqlite", "insert_snapshot", err)
		}
		fragments, err := json.Marshal(orEmpty(snap.Fragments))
		if err != nil {
			return nil, trace.NewStorageError("sqlite", "insert_snapshot", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trace_anchors (
				trace_id, anchor_id, level, scope, statement, triggers,
				hash, active, matched, fragments
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, snap.AnchorID, int(snap.Level), snap.Scope, snap.Statement, string(triggers),
			snap.Hash, snap.Active, snap.Matched, string(fragments),
		); err != nil {
			return nil, trace.NewStorageError("sqlite", "insert_snapshot", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, trace.NewStorageError("sqlite", "insert", err)
	}

	stored := *rec
	stored.ID = id
	stored.CreatedAt = now
	for _, snap := range stored.Snapshots {
		snap.TraceID = id
	}

	return &stored, nil
}

// Get retrieves a record by trace id, including snapshots.
func (s *SQLiteStorage) Get(ctx context.Context, id int64) (*trace.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request_id, request_summary, arousal, dominance, profile_id,
		        decision, reason, explanation, next_actions,
		        conflicted_anchor_id, matched_anchor_ids, max_matched_level,
		        parent_log_id, acknowledgement, matcher, degraded, created_at
		 FROM traces WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, trace.ErrTraceNotFound
	}
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "get", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT trace_id, anchor_id, level, scope, statement, triggers,
		        hash, active, matched, fragments
		 FROM trace_anchors WHERE trace_id = ? ORDER BY anchor_id`, id)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "get_snapshots", err)
	}
	defer rows.Close()

	for rows.Next() {
		snap := &trace.Snapshot{}
		var level int
		var triggers, fragments string
		if err := rows.Scan(&snap.TraceID, &snap.AnchorID, &level, &snap.Scope, &snap.Statement,
			&triggers, &snap.Hash, &snap.Active, &snap.Matched, &fragments); err != nil {
			return nil, trace.NewStorageError("sqlite", "scan_snapshot", err)
		}
		snap.Level = anchor.Level(level)
		if err := json.Unmarshal([]byte(triggers), &snap.Triggers); err != nil {
			return nil, trace.NewStorageError("sqlite", "scan_snapshot", err)
		}
		if err := json.Unmarshal([]byte(fragments), &snap.Fragments); err != nil {
			return nil, trace.NewStorageError("sqlite", "scan_snapshot", err)
		}
		rec.Snapshots = append(rec.Snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, trace.NewStorageError("sqlite", "get_snapshots", err)
	}

	return rec, nil
}

// List returns records matching the query, newest first, without snapshots.
func (s *SQLiteStorage) List(ctx context.Context, q *trace.Query) ([]*trace.Record, error) {
	query := `SELECT id, request_id, request_summary, arousal, dominance, profile_id,
	                 decision, reason, explanation, next_actions,
	                 conflicted_anchor_id, matched_anchor_ids, max_matched_level,
	                 parent_log_id, acknowledgement, matcher, degraded, created_at
	          FROM traces`
	args := []any{}
	if q.Decision != "" {
		query += ` WHERE decision = ?`
		args = append(args, q.Decision)
	}
	query += ` ORDER BY id DESC`

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT %d`, limit)
	if q.Offset > 0 {
		query += fmt.Sprintf(` OFFSET %d`, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, trace.NewStorageError("sqlite", "list", err)
	}
	defer rows.Close()

	records := []*trace.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, trace.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, trace.NewStorageError("sqlite", "list", err)
	}

	return records, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, q *trace.Query) (int64, error) {
	query := `SELECT COUNT(*) FROM traces`
	args := []any{}
	if q.Decision != "" {
		query += ` WHERE decision = ?`
		args = append(args, q.Decision)
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, trace.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanRecord.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*trace.Record, error) {
	rec := &trace.Record{}
	var profileID, parentID sql.NullInt64
	var nextActions, matchedIDs string

	if err := row.Scan(&rec.ID, &rec.RequestID, &rec.Summary, &rec.Arousal, &rec.Dominance, &profileID,
		&rec.Decision, &rec.Reason, &rec.Explanation, &nextActions,
		&rec.ConflictedAnchorID, &matchedIDs, &rec.MaxMatchedLevel,
		&parentID, &rec.Acknowledgement, &rec.Matcher, &rec.Degraded, &rec.CreatedAt); err != nil {
		return nil, err
	}

	if profileID.Valid {
		rec.ProfileID = &profileID.Int64
	}
	if parentID.Valid {
		rec.ParentID = &parentID.Int64
	}
	if err := json.Unmarshal([]byte(nextActions), &rec.NextActions); err != nil {
		return nil, fmt.Errorf("unmarshal next_actions for trace %d: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(matchedIDs), &rec.MatchedAnchorIDs); err != nil {
		return nil, fmt.Errorf("unmarshal matched_anchor_ids for trace %d: %w", rec.ID, err)
	}

	return rec, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyIDs(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return s
}
