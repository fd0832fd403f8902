package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/questlog/internal/tracker"
)

// Schema tests

func TestSchema_DocumentsTable(t *testing.T) {
	s := createTestSQLite(t)
	assert.Equal(t, []string{"name", "body", "version", "updated_at"}, tableColumns(t, s.db, "documents"))
}

func TestSchema_RevisionsTable(t *testing.T) {
	s := createTestSQLite(t)
	assert.Equal(t, []string{"seq", "name", "version", "message", "saved_at"}, tableColumns(t, s.db, "revisions"))
}

func TestConstraint_RevisionNeedsDocument(t *testing.T) {
	s := createTestSQLite(t)

	_, err := s.db.Exec(`INSERT INTO revisions (name, version, message, saved_at) VALUES ('ghost', 'v', 'm', 't')`)
	require.Error(t, err, "foreign key on revisions.name must reject unknown documents")
}

// Migration tests

func TestMigration_IndexesRevisions(t *testing.T) {
	s := createTestSQLite(t)
	assert.Contains(t, tableIndexes(t, s.db, "revisions"), "idx_revisions_name_seq")
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Schema without migrations, as written before user_version existed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
	assert.Contains(t, tableIndexes(t, s.db, "revisions"), "idx_revisions_name_seq")
}

// Revision log tests

func TestSQLite_RevisionsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestSQLite(t)

	tick := testNow
	s.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	doc := tracker.Seed(testNow)
	_, err := s.Init(ctx, doc, "Initialize tracker")
	require.NoError(t, err)

	_, version, err := s.Load(ctx)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		doc = mutated(doc, 10)
		version, err = s.Save(ctx, Write{Document: doc, Version: version, Message: fmt.Sprintf("save %d", i)})
		require.NoError(t, err)
	}

	revs, err := s.Revisions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "save 3", revs[0].Message)
	assert.Equal(t, "save 2", revs[1].Message)
	assert.Equal(t, version, revs[0].Version)
	assert.Greater(t, revs[0].Seq, revs[1].Seq)
	assert.True(t, revs[0].SavedAt.After(revs[1].SavedAt))

	all, err := s.Revisions(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "Initialize tracker", all[3].Message)
}

func TestSQLite_RevisionsSkipFailedSaves(t *testing.T) {
	ctx := context.Background()
	s := createTestSQLite(t)

	doc := tracker.Seed(testNow)
	_, err := s.Init(ctx, doc, "Initialize tracker")
	require.NoError(t, err)

	_, err = s.Save(ctx, Write{Document: mutated(doc, 5), Version: "stale", Message: "lost"})
	require.ErrorIs(t, err, ErrVersionConflict)

	revs, err := s.Revisions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, revs, 1)
	assert.Equal(t, "Initialize tracker", revs[0].Message)
}

// Helper functions

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		require.NoError(t, rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?`, table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	slices.Sort(names)
	return names
}
