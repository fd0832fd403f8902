package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "questlog.db", cfg.DBPath)
	assert.Equal(t, "public/data/tracker.json", cfg.GitHub.Path)
	assert.Equal(t, "https://api.github.com", cfg.GitHub.API)
	assert.True(t, cfg.OTelEnabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("QUESTLOG_ADDR", "127.0.0.1:9000")
	t.Setenv("QUESTLOG_API_SECRET", "hunter2")
	t.Setenv("QUESTLOG_STORE", "github")
	t.Setenv("QUESTLOG_GITHUB_TOKEN", "ghp_x")
	t.Setenv("QUESTLOG_GITHUB_OWNER", "hunter")
	t.Setenv("QUESTLOG_GITHUB_REPO", "daily")
	t.Setenv("QUESTLOG_GITHUB_BRANCH", "main")
	t.Setenv("QUESTLOG_OTEL_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "hunter2", cfg.APISecret)
	assert.False(t, cfg.OTelEnabled)
	require.NoError(t, cfg.Validate())

	gh := cfg.GitHubStore()
	assert.Equal(t, "hunter", gh.Owner)
	assert.Equal(t, "daily", gh.Repo)
	assert.Equal(t, "main", gh.Branch)
	assert.Equal(t, "ghp_x", gh.Token)
}

func TestParseEnvError(t *testing.T) {
	t.Setenv("QUESTLOG_OTEL_ENABLED", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Store: StoreMemory}, ""},
		{"sqlite without path", Config{Store: StoreSQLite}, "QUESTLOG_DB"},
		{"github without token", Config{Store: StoreGitHub, GitHub: GitHub{Owner: "o", Repo: "r", Path: "p"}}, "QUESTLOG_GITHUB_TOKEN"},
		{"github without repo", Config{Store: StoreGitHub, GitHub: GitHub{Token: "t", Path: "p"}}, "QUESTLOG_GITHUB_REPO"},
		{"unknown store", Config{Store: "s3"}, `unknown store "s3"`},
		{"bad timezone", Config{Store: StoreMemory, Timezone: "Mars/Olympus"}, "QUESTLOG_TIMEZONE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLocation(t *testing.T) {
	loc, err := Config{Timezone: "Local"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = Config{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
