// Package config loads questlog settings from QUESTLOG_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/questlog/internal/store"
)

// Store backends accepted by QUESTLOG_STORE.
const (
	StoreSQLite = "sqlite"
	StoreGitHub = "github"
	StoreMemory = "memory"
)

// Config is the process configuration. CLI flags override individual
// fields after ParseEnv.
type Config struct {
	Addr      string `env:"QUESTLOG_ADDR" envDefault:":8080"`
	APISecret string `env:"QUESTLOG_API_SECRET"`
	Store     string `env:"QUESTLOG_STORE" envDefault:"sqlite"`
	DBPath    string `env:"QUESTLOG_DB" envDefault:"questlog.db"`
	Catalog   string `env:"QUESTLOG_CATALOG"`
	Timezone  string `env:"QUESTLOG_TIMEZONE" envDefault:"Local"`

	GitHub GitHub

	OTelEndpoint string `env:"QUESTLOG_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"QUESTLOG_OTEL_ENABLED" envDefault:"true"`
}

// GitHub holds the contents API settings used when Store is "github".
type GitHub struct {
	Token  string `env:"QUESTLOG_GITHUB_TOKEN"`
	Owner  string `env:"QUESTLOG_GITHUB_OWNER"`
	Repo   string `env:"QUESTLOG_GITHUB_REPO"`
	Path   string `env:"QUESTLOG_GITHUB_PATH" envDefault:"public/data/tracker.json"`
	Branch string `env:"QUESTLOG_GITHUB_BRANCH"`
	API    string `env:"QUESTLOG_GITHUB_API" envDefault:"https://api.github.com"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses a Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings the selected store needs.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StoreSQLite:
		if strings.TrimSpace(c.DBPath) == "" {
			errs = append(errs, errors.New("QUESTLOG_DB is required for the sqlite store"))
		}
	case StoreGitHub:
		if c.GitHub.Token == "" {
			errs = append(errs, errors.New("QUESTLOG_GITHUB_TOKEN is required for the github store"))
		}
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			errs = append(errs, errors.New("QUESTLOG_GITHUB_OWNER and QUESTLOG_GITHUB_REPO are required for the github store"))
		}
		if c.GitHub.Path == "" {
			errs = append(errs, errors.New("QUESTLOG_GITHUB_PATH must not be empty"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want sqlite, github or memory)", c.Store))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("QUESTLOG_TIMEZONE: %w", err)
	}
	return loc, nil
}

// GitHubStore converts the GitHub settings for store.NewGitHub.
func (c Config) GitHubStore() store.GitHubConfig {
	return store.GitHubConfig{
		BaseURL: c.GitHub.API,
		Owner:   c.GitHub.Owner,
		Repo:    c.GitHub.Repo,
		Path:    c.GitHub.Path,
		Branch:  c.GitHub.Branch,
		Token:   c.GitHub.Token,
	}
}
