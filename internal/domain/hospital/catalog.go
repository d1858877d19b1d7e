package hospital

import (
	"context"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/yanqian/carefinder/pkg/errors"
	"github.com/yanqian/carefinder/pkg/util"
)

// CatalogConfig controls snapshot freshness.
type CatalogConfig struct {
	TTL time.Duration
}

// Catalog owns the hospital table lifecycle: cache, refresh and fallback.
// The recommender and evaluator receive tables from it and hold no state of their own.
type Catalog interface {
	Hospitals(ctx context.Context) (Table, error)
	Refresh(ctx context.Context) (Snapshot, error)
}

type catalog struct {
	cfg    CatalogConfig
	source Source
	store  Store
	repo   Repository
	logger *slog.Logger
	now    util.Clock

	// refreshMu collapses concurrent cache misses into one source fetch.
	refreshMu sync.Mutex
}

// NewCatalog wires the hospital catalog.
func NewCatalog(cfg CatalogConfig, source Source, store Store, repo Repository, logger *slog.Logger) Catalog {
	return &catalog{
		cfg:    cfg,
		source: source,
		store:  store,
		repo:   repo,
		logger: logger.With("component", "hospital.catalog"),
		now:    util.NowUTC,
	}
}

func (c *catalog) Hospitals(ctx context.Context) (Table, error) {
	if snap, ok := c.cached(ctx); ok {
		return snap.Table, nil
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	if snap, ok := c.cached(ctx); ok {
		return snap.Table, nil
	}

	snap, err := c.refreshLocked(ctx)
	if err == nil {
		return snap.Table, nil
	}
	if apperrors.IsCode(err, apperrors.CodeInvalidTable) {
		return nil, err
	}

	fallback, ok, repoErr := c.repo.Latest(ctx)
	if repoErr != nil {
		c.logger.Error("catalog fallback lookup failed", "error", repoErr)
	}
	if ok && len(fallback.Table) > 0 {
		c.logger.Warn("serving last stored hospital snapshot", "fetched_at", fallback.FetchedAt, "rows", len(fallback.Table), "error", err)
		return fallback.Table, nil
	}
	return nil, apperrors.Wrap(apperrors.CodeCatalog, "hospital table unavailable", err)
}

func (c *catalog) Refresh(ctx context.Context) (Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	return c.refreshLocked(ctx)
}

func (c *catalog) refreshLocked(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	table, err := c.source.Fetch(ctx)
	if err != nil {
		return Snapshot{}, apperrors.Wrap(apperrors.CodeSource, "fetch hospitals from "+c.source.Name(), err)
	}
	if err := table.Validate(); err != nil {
		c.logger.Error("source returned malformed hospital table", "source", c.source.Name(), "error", err)
		return Snapshot{}, err
	}

	snap := Snapshot{Table: table, FetchedAt: c.now(), Source: c.source.Name()}
	if err := c.store.Save(ctx, snap, c.cfg.TTL); err != nil {
		c.logger.Warn("catalog cache save failed", "error", err)
	}
	if err := c.repo.Replace(ctx, snap); err != nil {
		c.logger.Warn("catalog snapshot persist failed", "error", err)
	}
	c.logger.Info("hospital catalog refreshed", "source", snap.Source, "rows", len(table), "states", len(table.States()), "duration_ms", time.Since(start).Milliseconds())
	return snap, nil
}

func (c *catalog) cached(ctx context.Context) (Snapshot, bool) {
	snap, ok, err := c.store.Load(ctx)
	if err != nil {
		c.logger.Warn("catalog cache lookup failed", "error", err)
		return Snapshot{}, false
	}
	if !ok || len(snap.Table) == 0 {
		return Snapshot{}, false
	}
	if util.Expired(snap.FetchedAt, c.cfg.TTL, c.now()) {
		return Snapshot{}, false
	}
	return snap, true
}
