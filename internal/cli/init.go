package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/questlog/internal/store"
)

// InitResult is the JSON payload of the init command.
type InitResult struct {
	Store   string `json:"store"`
	Created bool   `json:"created"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the starting tracker document",
		Long: `Write the starting tracker document (XP 0, every stat 10) unless one
already exists. Running init twice is safe.

The GitHub store is only ever created by this command; SQLite is also
seeded automatically on first use.

Example:
  questlog init --db ./questlog.db
  questlog init --store github`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, rootOpts)
		},
	}
	return cmd
}

func runInit(cmd *cobra.Command, opts *RootOptions) error {
	logger := setupLogging(opts)
	formatter := opts.formatter(cmd)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	st, closeFn, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	initializer, ok := st.(store.Initializer)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("store %q cannot be initialized", cfg.Store))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	created, err := seed(ctx, initializer, loc, logger)
	if err != nil {
		return err
	}

	text := "Tracker already exists"
	if created {
		text = "Tracker initialized"
	}
	return formatter.Success(InitResult{Store: cfg.Store, Created: created}, "", text)
}
