package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/questlog/internal/tracker"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// createTestSQLite opens a fresh database file in a temp dir.
func createTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { s.Close() })
	return s
}

// mutated returns a copy of doc with xp changed by delta.
func mutated(doc *tracker.Document, delta int) *tracker.Document {
	c := doc.Clone()
	c.XP += delta
	c.Recompute()
	return c
}
