// Package app provides the top-level application lifecycle for the node. It
// wires the stores, the local offer store, the protocol, the monitor, and the
// API surfaces, and runs them until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bitdex/dexnode/internal/archive"
	"github.com/bitdex/dexnode/internal/config"
	"github.com/bitdex/dexnode/internal/server"
	"github.com/bitdex/dexnode/internal/server/handler"
	"github.com/bitdex/dexnode/internal/server/ws"
)

// shutdownTimeout bounds how long the HTTP server drains in-flight requests.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies, starts the long-running components, and blocks
// until the context is cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting node",
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := deps.Monitor.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app: monitor: %w", err)
		}
		return nil
	})

	if a.cfg.Server.Enabled {
		hub := ws.NewHub(deps.SignalBus, a.logger)
		g.Go(func() error {
			if err := hub.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: ws hub: %w", err)
			}
			return nil
		})

		srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, server.Handlers{
			Health:  handler.NewHealthHandler(a.logger),
			Offers:  handler.NewOfferHandler(deps.DB, deps.Protocol, a.logger),
			Catalog: handler.NewCatalogHandler(deps.DB, a.logger),
		}, hub, a.logger)

		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if a.cfg.Archive.Enabled {
		snap := archive.New(deps.DB, deps.BlobWriter, a.cfg.Archive.Interval.Duration, a.logger)
		g.Go(func() error {
			if err := snap.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: archive: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down node")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
