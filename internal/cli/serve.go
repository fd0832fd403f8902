package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/questlog/internal/server"
	"github.com/roach88/questlog/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the action endpoint over HTTP",
		Long: `Start the HTTP server that accepts tracker actions.

POST /api/update (or /) with a JSON action and
"Authorization: Bearer $QUESTLOG_API_SECRET". The server stops gracefully
on SIGINT or SIGTERM.

Example:
  QUESTLOG_API_SECRET=... questlog serve --addr :8080 --db ./questlog.db
  questlog serve --store github`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from QUESTLOG_ADDR)")
	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	logger := setupLogging(opts.RootOptions)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if cfg.APISecret == "" {
		logger.Warn("QUESTLOG_API_SECRET is empty; every request will be rejected")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Settings{
		Endpoint: cfg.OTelEndpoint,
		Enabled:  cfg.OTelEnabled,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to set up tracing", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("error flushing traces", "error", err)
		}
	}()

	rt, err := openRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()

	handler := server.NewHandler(rt.processor(logger, nil), cfg.APISecret, server.WithLogger(logger))
	srv := server.New(cfg.Addr, handler.Routes(), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "cause", context.Cause(gctx))
		return nil
	})

	logger.Info("questlog serving", "addr", cfg.Addr, "store", cfg.Store)
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("server on %s failed", cfg.Addr), err)
	}
	return nil
}
