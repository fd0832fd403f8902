package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog_WeekdayAndWeekend(t *testing.T) {
	out, err := execute(t, "catalog", "--date", "2026-03-02")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog for 2026-03-02 (weekday)")
	assert.Contains(t, out, "Travail 8h")
	assert.Contains(t, out, "Pas travaillé 8h")

	out, err = execute(t, "catalog", "--date", "2026-03-07")
	require.NoError(t, err)
	assert.Contains(t, out, "(weekend)")
	assert.Contains(t, out, "Travail 3-4h")
	assert.NotContains(t, out, "Travail 8h")
}

func TestCatalog_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "catalog", "--date", "2026-03-08")
	require.NoError(t, err)

	var resp struct {
		Data CatalogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.Data.Weekend)
	assert.Len(t, resp.Data.Quests, 9)
	assert.Len(t, resp.Data.Penalties, 11)
	assert.Contains(t, resp.Data.Quests, CatalogEntry{ID: "work", Title: "Travail 3-4h", XP: 15, Stat: "intelligence"})
}

func TestCatalog_CustomFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.cue")
	require.NoError(t, os.WriteFile(path, []byte(`
quests: {
	stretch: {title: "Stretch", xp: 5, stat: "vitality"}
}
penalties: {
	doomscroll: {title: "Doomscrolling", xp: -20}
}
`), 0o644))
	t.Setenv("QUESTLOG_CATALOG", path)

	out, err := execute(t, "--format", "json", "catalog", "--date", "2026-03-02")
	require.NoError(t, err)
	var resp struct {
		Data CatalogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []CatalogEntry{{ID: "stretch", Title: "Stretch", XP: 5, Stat: "vitality"}}, resp.Data.Quests)
	assert.Equal(t, []CatalogEntry{{ID: "doomscroll", Title: "Doomscrolling", XP: -20}}, resp.Data.Penalties)
}

func TestCatalog_BadDate(t *testing.T) {
	_, err := execute(t, "catalog", "--date", "March 2nd")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
