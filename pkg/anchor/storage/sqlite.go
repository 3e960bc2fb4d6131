package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/keel/pkg/anchor"
)

// SQLiteConfig contains configuration for the SQLite policy store.
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
		Path:         "data/anchors.db",
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

// NewSQLiteStorage creates a new SQLite policy store.
// It initializes the schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "anchor.storage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "open", err)
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

	logger.Info("anchor store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and pragmas.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return anchor.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return anchor.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return anchor.NewStorageError("sqlite", "enable_foreign_keys", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return anchor.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return anchor.NewStorageError("sqlite", "insert_schema_version", err)
	}

	return nil
}

// CreateAnchor persists a new anchor and assigns its identity and hash.
func (s *SQLiteStorage) CreateAnchor(ctx context.Context, a *anchor.Anchor) (*anchor.Anchor, error) {
	if !a.Level.Valid() || a.Statement == "" {
		return nil, fmt.Errorf("%w: level=%d statement=%q", anchor.ErrInvalidAnchor, a.Level, a.Statement)
	}

	triggers, err := json.Marshal(a.Triggers)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "create", err)
	}

	hash := anchor.ContentHash(a.Level, a.Scope, a.Statement)
	now := time.Now().UTC()

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO anchors (level, scope, statement, triggers, active, hash, created_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		int(a.Level), a.Scope, a.Statement, string(triggers), hash, now,
	)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "create", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "create", err)
	}

	return &anchor.Anchor{
		ID:        id,
		Level:     a.Level,
		Scope:     a.Scope,
		Statement: a.Statement,
		Triggers:  append([]string(nil), a.Triggers...),
		Active:    true,
		Hash:      hash,
		CreatedAt: now,
	}, nil
}

// GetAnchor retrieves an anchor by ID.
func (s *SQLiteStorage) GetAnchor(ctx context.Context, id int64) (*anchor.Anchor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, level, scope, statement, triggers, active, hash, created_at
		 FROM anchors WHERE id = ?`, id)

	a, err := scanAnchor(row)
	if err == sql.ErrNoRows {
		return nil, anchor.ErrAnchorNotFound
	}
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "get", err)
	}
	return a, nil
}

// ListAnchors returns all anchors ordered by ID.
func (s *SQLiteStorage) ListAnchors(ctx context.Context, includeInactive bool) ([]*anchor.Anchor, error) {
	query := `SELECT id, level, scope, statement, triggers, active, hash, created_at FROM anchors`
	if !includeInactive {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY id`

	return s.queryAnchors(ctx, query)
}

// ListActive returns all active anchors, optionally restricted to a scope.
func (s *SQLiteStorage) ListActive(ctx context.Context, scope string) ([]*anchor.Anchor, error) {
	query := `SELECT id, level, scope, statement, triggers, active, hash, created_at
	          FROM anchors WHERE active = 1`
	args := []any{}
	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY id`

	return s.queryAnchors(ctx, query, args...)
}

// UpdateAnchor applies an edit as a single atomic UPDATE, recomputing the hash.
func (s *SQLiteStorage) UpdateAnchor(ctx context.Context, a *anchor.Anchor) error {
	if !a.Level.Valid() || a.Statement == "" {
		return fmt.Errorf("%w: level=%d statement=%q", anchor.ErrInvalidAnchor, a.Level, a.Statement)
	}

	triggers, err := json.Marshal(a.Triggers)
	if err != nil {
		return anchor.NewStorageError("sqlite", "update", err)
	}

	hash := anchor.ContentHash(a.Level, a.Scope, a.Statement)

	result, err := s.db.ExecContext(ctx,
		`UPDATE anchors SET level = ?, scope = ?, statement = ?, triggers = ?, hash = ? WHERE id = ?`,
		int(a.Level), a.Scope, a.Statement, string(triggers), hash, a.ID,
	)
	if err != nil {
		return anchor.NewStorageError("sqlite", "update", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return anchor.NewStorageError("sqlite", "update", err)
	}
	if affected == 0 {
		return anchor.ErrAnchorNotFound
	}

	s.logger.Info("anchor updated", "anchor_id", a.ID, "hash", hash)
	return nil
}

// ArchiveAnchor sets the anchor's active flag to false atomically.
func (s *SQLiteStorage) ArchiveAnchor(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE anchors SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return anchor.NewStorageError("sqlite", "archive", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return anchor.NewStorageError("sqlite", "archive", err)
	}
	if affected == 0 {
		return anchor.ErrAnchorNotFound
	}

	s.logger.Info("anchor archived", "anchor_id", id)
	return nil
}

// CreateProfile persists a new profile and its membership rows in one transaction.
func (s *SQLiteStorage) CreateProfile(ctx context.Context, name, description string, anchorIDs []int64) (*anchor.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "create_profile", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO profiles (name, description, active, created_at) VALUES (?, ?, 1, ?)`,
		name, description, now,
	)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "create_profile", err)
	}

	profileID, err := result.LastInsertId()
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "create_profile", err)
	}

	for position, anchorID := range anchorIDs {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM anchors WHERE id = ?`, anchorID).Scan(&exists); err != nil {
			return nil, anchor.NewStorageError("sqlite", "create_profile", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("profile member %d: %w", anchorID, anchor.ErrAnchorNotFound)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO profile_anchors (profile_id, anchor_id, position) VALUES (?, ?, ?)`,
			profileID, anchorID, position,
		); err != nil {
			return nil, anchor.NewStorageError("sqlite", "create_profile", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, anchor.NewStorageError("sqlite", "create_profile", err)
	}

	return &anchor.Profile{
		ID:          profileID,
		Name:        name,
		Description: description,
		Active:      true,
		AnchorIDs:   append([]int64(nil), anchorIDs...),
		CreatedAt:   now,
	}, nil
}

// GetProfile retrieves a profile by ID, including membership order.
func (s *SQLiteStorage) GetProfile(ctx context.Context, id int64) (*anchor.Profile, error) {
	p := &anchor.Profile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, active, created_at FROM profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, anchor.ErrProfileNotFound
	}
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "get_profile", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT anchor_id FROM profile_anchors WHERE profile_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "get_profile", err)
	}
	defer rows.Close()

	for rows.Next() {
		var anchorID int64
		if err := rows.Scan(&anchorID); err != nil {
			return nil, anchor.NewStorageError("sqlite", "get_profile", err)
		}
		p.AnchorIDs = append(p.AnchorIDs, anchorID)
	}
	if err := rows.Err(); err != nil {
		return nil, anchor.NewStorageError("sqlite", "get_profile", err)
	}

	return p, nil
}

// ListProfiles returns all profiles ordered by ID.
func (s *SQLiteStorage) ListProfiles(ctx context.Context) ([]*anchor.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, active, created_at FROM profiles ORDER BY id`)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "list_profiles", err)
	}
	defer rows.Close()

	profiles := []*anchor.Profile{}
	for rows.Next() {
		p := &anchor.Profile{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Active, &p.CreatedAt); err != nil {
			return nil, anchor.NewStorageError("sqlite", "list_profiles", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, anchor.NewStorageError("sqlite", "list_profiles", err)
	}

	for _, p := range profiles {
		full, err := s.GetProfile(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		p.AnchorIDs = full.AnchorIDs
	}

	return profiles, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// queryAnchors executes an anchor SELECT and scans all rows.
func (s *SQLiteStorage) queryAnchors(ctx context.Context, query string, args ...any) ([]*anchor.Anchor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, anchor.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	anchors := []*anchor.Anchor{}
	for rows.Next() {
		a, err := scanAnchor(rows)
		if err != nil {
			return nil, anchor.NewStorageError("sqlite", "scan", err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, anchor.NewStorageError("sqlite", "query", err)
	}

	return anchors, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanAnchor.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnchor(row rowScanner) (*anchor.Anchor, error) {
	a := &anchor.Anchor{}
	var level int
	var triggers string

	if err := row.Scan(&a.ID, &level, &a.Scope, &a.Statement, &triggers, &a.Active, &a.Hash, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Level = anchor.Level(level)

	if triggers != "" {
		if err := json.Unmarshal([]byte(triggers), &a.Triggers); err != nil {
			return nil, fmt.Errorf("unmarshal triggers for anchor %d: %w", a.ID, err)
		}
	}

	return a, nil
}
