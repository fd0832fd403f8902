package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/roach88/questlog/internal/catalog"
	"github.com/roach88/questlog/internal/config"
	"github.com/roach88/questlog/internal/engine"
	"github.com/roach88/questlog/internal/store"
	"github.com/roach88/questlog/internal/tracker"
)

// githubTimeout bounds each contents API call.
const githubTimeout = 15 * time.Second

// seedMessage labels the revision that creates the document.
const seedMessage = "Initialize tracker"

// runtime is everything a command needs to reach the document.
type runtime struct {
	cfg      config.Config
	store    store.Store
	catalog  *catalog.Catalog
	location *time.Location
	close    func() error
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if opts.Store != "" {
		cfg.Store = opts.Store
	}
	if opts.DB != "" {
		cfg.DBPath = opts.DB
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// openRuntime opens the configured store and catalog. Local stores (SQLite
// and memory) are seeded on first use; the GitHub file is only created by
// the init command.
func openRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	st, closeFn, err := openStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if initializer, ok := st.(store.Initializer); ok && cfg.Store != config.StoreGitHub {
		if _, err := seed(ctx, initializer, loc, logger); err != nil {
			closeFn()
			return nil, err
		}
	}
	return &runtime{cfg: cfg, store: st, catalog: cat, location: loc, close: closeFn}, nil
}

// openStore opens the backend named by cfg.Store without touching the
// document.
func openStore(cfg config.Config, logger *slog.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case config.StoreSQLite:
		logger.Debug("opening database", "path", cfg.DBPath)
		st, err := store.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		return st, st.Close, nil
	case config.StoreMemory:
		return store.NewMemory(), noop, nil
	case config.StoreGitHub:
		gh, err := store.NewGitHub(cfg.GitHubStore(), &http.Client{Timeout: githubTimeout})
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid github configuration", err)
		}
		return gh, noop, nil
	default:
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown store %q", cfg.Store))
	}
}

// loadCatalog returns the built-in catalog unless QUESTLOG_CATALOG names a
// CUE file.
func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadFile(cfg.Catalog)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	return cat, nil
}

// seed creates the starting document unless one exists.
func seed(ctx context.Context, initializer store.Initializer, loc *time.Location, logger *slog.Logger) (bool, error) {
	created, err := initializer.Init(ctx, tracker.Seed(time.Now().In(loc)), seedMessage)
	if err != nil {
		return false, WrapExitError(ExitFailure, "failed to initialize tracker", err)
	}
	if created {
		logger.Info("tracker initialized")
	}
	return created, nil
}

// processor builds the engine over the runtime's store. A nil clock reads
// the system time in the configured zone.
func (rt *runtime) processor(logger *slog.Logger, clock engine.Clock) *engine.Processor {
	if clock == nil {
		clock = engine.SystemClock{Location: rt.location}
	}
	return engine.New(rt.store, rt.catalog,
		engine.WithClock(clock),
		engine.WithLogger(logger),
	)
}

// actionExitError maps an engine error onto the CLI exit codes.
func actionExitError(err error) error {
	var e *engine.Error
	if errors.As(err, &e) && e.Code == engine.ErrCodeInvalidAction {
		return WrapExitError(ExitCommandError, "action rejected", err)
	}
	return WrapExitError(ExitFailure, "action failed", err)
}
