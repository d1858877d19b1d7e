package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/infra/config"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the HTTP server lifecycle.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	catalog hospital.Catalog
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, catalog hospital.Catalog) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, catalog: catalog}
}

// Run warms the hospital catalog, starts the HTTP server and blocks until
// ctx is cancelled or the server fails. A failed warm-up is logged; requests
// retry the load on demand.
func (a *App) Run(ctx context.Context) error {
	warmCtx, cancel := context.WithTimeout(ctx, a.cfg.Catalog.FetchTimeout)
	if table, err := a.catalog.Hospitals(warmCtx); err != nil {
		a.logger.Warn("catalog warm-up failed", "error", err)
	} else {
		a.logger.Info("catalog ready", "hospitals", len(table), "states", len(table.States()))
	}
	cancel()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
