package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dreamware/changelogd/internal/auth"
	"github.com/dreamware/changelogd/internal/config"
	"github.com/dreamware/changelogd/internal/logging"
	"github.com/dreamware/changelogd/internal/router"
	"github.com/dreamware/changelogd/internal/server"
	"github.com/dreamware/changelogd/internal/storage"
	"github.com/dreamware/changelogd/internal/telemetry"
	"github.com/dreamware/changelogd/internal/workpool"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgFile, err := cmd.Flags().GetString(flagConfig)
			if err != nil {
				return err
			}
			cfg, err := config.Load(cmd.Flags(), cfgFile)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return a.run(cmd.Context(), nil)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

// app is an assembled server with everything it owns.
type app struct {
	cfg      config.Config
	logger   *log.Logger
	store    *storage.FileStore
	pool     *workpool.Pool
	srv      *server.Server
	shutdown func(context.Context) error
}

// newApp wires the server components for cfg. Logs go to logOut.
func newApp(ctx context.Context, cfg config.Config, logOut io.Writer) (*app, error) {
	logger, err := logging.New(logOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDirectory(cfg.Directory); err != nil {
		return nil, err
	}

	shutdown, err := telemetry.Setup(ctx, "changelogd", cfg.OTelEndpoint)
	if err != nil {
		return nil, err
	}

	pool, err := workpool.New(cfg.Workers)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}

	store := storage.NewFileStore(cfg.Directory)
	rt := router.New(store, auth.NewGuard(cfg.Secret))
	srv := server.New(server.Options{
		Addr:              cfg.ListenAddr(),
		Quiet:             cfg.Quiet,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.ShutdownTimeout,
	}, rt, pool, logger)

	logger.Info("initialized", "directory", cfg.Directory, "workers", cfg.Workers, "tracing", cfg.OTelEndpoint != "")
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		pool:     pool,
		srv:      srv,
		shutdown: shutdown,
	}, nil
}

// run serves until ctx is done. With a nil listener the configured
// address is bound.
func (a *app) run(ctx context.Context, ln net.Listener) error {
	var err error
	if ln == nil {
		err = a.srv.ListenAndServe(ctx)
	} else {
		err = a.srv.Serve(ctx, ln)
	}
	return errors.Join(err, a.close())
}

// close drains the pool, flushes traces and reports store activity.
func (a *app) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.pool.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain pool: %w", err))
	}
	if err := a.shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("flush traces: %w", err))
	}

	stats := a.store.Stats()
	a.logger.Info("stopped", "gets", stats.Gets, "puts", stats.Puts, "lookups", stats.Lookups)
	return errors.Join(errs...)
}
