package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/questlog/internal/tracker"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on revisions(name, seq)
const currentSchemaVersion = 1

// DefaultDocumentName is the row used when no name is configured.
const DefaultDocumentName = "tracker"

// SQLite stores the tracker document in a SQLite database.
type SQLite struct {
	db   *sql.DB
	name string
	now  func() time.Time
}

// Revision is one entry of the write audit log.
type Revision struct {
	Seq     int64
	Version string
	Message string
	SavedAt time.Time
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLite{db: db, name: DefaultDocumentName, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Load implements Store.
func (s *SQLite) Load(ctx context.Context) (*tracker.Document, string, error) {
	var body, version string
	err := s.db.QueryRowContext(ctx,
		`SELECT body, version FROM documents WHERE name = ?`, s.name,
	).Scan(&body, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("sqlite load: %w", err)
	}

	doc, err := tracker.Unmarshal([]byte(body))
	if err != nil {
		return nil, "", fmt.Errorf("sqlite load: %w", err)
	}
	return doc, version, nil
}

// Save implements Store. The update is conditioned on the stored version;
// when no row matches, the current version is read back to build the
// ConflictError.
func (s *SQLite) Save(ctx context.Context, w Write) (string, error) {
	body, version, err := encode(w.Document)
	if err != nil {
		return "", fmt.Errorf("sqlite save: %w", err)
	}
	savedAt := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("sqlite save: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET body = ?, version = ?, updated_at = ?
		WHERE name = ? AND version = ?
	`, string(body), version, savedAt, s.name, w.Version)
	if err != nil {
		return "", fmt.Errorf("sqlite save: update: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("sqlite save: rows affected: %w", err)
	}
	if rows == 0 {
		var current string
		err := tx.QueryRowContext(ctx, `SELECT version FROM documents WHERE name = ?`, s.name).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("sqlite save: select current: %w", err)
		}
		return "", &ConflictError{Expected: w.Version, Current: current}
	}

	if err := insertRevision(ctx, tx, s.name, version, w.Message, savedAt); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("sqlite save: commit: %w", err)
	}
	return version, nil
}

// Init implements Initializer using INSERT ... ON CONFLICT DO NOTHING, so
// concurrent initializers cannot overwrite each other.
func (s *SQLite) Init(ctx context.Context, doc *tracker.Document, message string) (bool, error) {
	body, version, err := encode(doc)
	if err != nil {
		return false, fmt.Errorf("sqlite init: %w", err)
	}
	savedAt := s.now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite init: begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO documents (name, body, version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
	`, s.name, string(body), version, savedAt)
	if err != nil {
		return false, fmt.Errorf("sqlite init: insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite init: rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if err := insertRevision(ctx, tx, s.name, version, message, savedAt); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite init: commit: %w", err)
	}
	return true, nil
}

func insertRevision(ctx context.Context, tx *sql.Tx, name, version, message, savedAt string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO revisions (name, version, message, saved_at)
		VALUES (?, ?, ?, ?)
	`, name, version, message, savedAt)
	if err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// Revisions returns the most recent revisions, newest first.
func (s *SQLite) Revisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, version, message, saved_at
		FROM revisions
		WHERE name = ?
		ORDER BY seq DESC
		LIMIT ?
	`, s.name, limit)
	if err != nil {
		return nil, fmt.Errorf("query revisions: %w", err)
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var savedAt string
		if err := rows.Scan(&r.Seq, &r.Version, &r.Message, &savedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		r.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt)
		if err != nil {
			return nil, fmt.Errorf("parse saved_at %q: %w", savedAt, err)
		}
		revs = append(revs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate revisions: %w", err)
	}
	return revs, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 indexes the revision log for per-document history reads.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_revisions_name_seq
		ON revisions(name, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
