package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_QuestThenRepeat(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "apply", "quest", "steps")
	require.NoError(t, err)
	assert.Equal(t, "7000 Pas +15 XP (XP 15, level 1, rank E)\n", out)

	out, err = execute(t, "--db", db, "apply", "quest", "steps")
	require.NoError(t, err)
	assert.Equal(t, "Quest already completed today\n", out)
}

func TestApply_JSON(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "--format", "json", "apply", "penalty", "junkFood")
	require.NoError(t, err)

	var resp struct {
		Status    string      `json:"status"`
		RequestID string      `json:"request_id"`
		Data      ApplyResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Len(t, resp.RequestID, 36)
	assert.Equal(t, "Junk food -45 XP", resp.Data.Message)
	assert.Equal(t, -45, resp.Data.Delta)
	assert.Equal(t, 0, resp.Data.XP)
	require.NotNil(t, resp.Data.WinRate)
	assert.Equal(t, 0, *resp.Data.WinRate)
	assert.NotEmpty(t, resp.Data.Version)
}

func TestApply_Custom(t *testing.T) {
	db := tempDB(t)

	out, err := execute(t, "--db", db, "apply", "custom", "--title", "  Helped a friend move ", "--xp", "40")
	require.NoError(t, err)
	assert.Contains(t, out, "Helped a friend move +40 XP")

	_, err = execute(t, "--db", db, "apply", "custom", "--xp", "40")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "Custom action requires a title")
}

func TestApply_Stats(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, "--db", db, "apply", "stats", "--stat", "pushups=25", "--stat", "pages=-3", "--stat", "sleep=7.5")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "--format", "json", "show")
	require.NoError(t, err)
	var resp struct {
		Data ShowResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, map[string]float64{"pushups": 25, "pages": -3, "sleep": 7.5}, resp.Data.Counters)
	assert.Equal(t, 0, resp.Data.XP)
}

func TestApply_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"unknown quest", []string{"apply", "quest", "skydiving"}, ExitCommandError, `Invalid quest: "skydiving"`},
		{"unknown kind", []string{"apply", "dance"}, ExitCommandError, `Invalid action: "dance"`},
		{"quest without id", []string{"apply", "quest"}, ExitCommandError, "quest requires an id"},
		{"non-numeric stat", []string{"apply", "stats", "--stat", "pages=many"}, ExitCommandError, "--stat pages: not a number"},
		{"id on newday", []string{"apply", "newday", "x"}, ExitCommandError, "newday takes no id argument"},
		{"no args", []string{"apply"}, ExitFailure, "accepts between 1 and 2 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--db", tempDB(t)}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.code, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestApply_NewDayClearsToday(t *testing.T) {
	db := tempDB(t)

	_, err := execute(t, "--db", db, "apply", "quest", "water")
	require.NoError(t, err)
	_, err = execute(t, "--db", db, "apply", "newday")
	require.NoError(t, err)

	out, err := execute(t, "--db", db, "apply", "quest", "water")
	require.NoError(t, err)
	assert.Contains(t, out, "Hydratation 2L +10 XP (XP 20")
}
