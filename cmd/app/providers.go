package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/carefinder/internal/domain/evaluation"
	"github.com/yanqian/carefinder/internal/domain/hospital"
	"github.com/yanqian/carefinder/internal/domain/recommender"
	"github.com/yanqian/carefinder/internal/infra/cms"
	"github.com/yanqian/carefinder/internal/infra/config"
	"github.com/yanqian/carefinder/internal/infra/hospitalrepo"
	"github.com/yanqian/carefinder/internal/infra/refreshqueue"
	"github.com/yanqian/carefinder/internal/infra/tablecache"
	"github.com/yanqian/carefinder/internal/infra/telemetry"
)

func provideCatalogConfig(cfg *config.Config) hospital.CatalogConfig {
	return hospital.CatalogConfig{TTL: cfg.Catalog.TTL}
}

func provideRecommenderConfig(cfg *config.Config) recommender.Config {
	return recommender.Config{
		DefaultLimit: cfg.Recommend.DefaultLimit,
		MaxLimit:     cfg.Recommend.MaxLimit,
	}
}

func provideEvaluationConfig(cfg *config.Config) evaluation.Config {
	return cfg.Evaluation.ServiceConfig()
}

func provideHospitalSource(cfg *config.Config, metrics *telemetry.Metrics) hospital.Source {
	return metrics.InstrumentSource(cms.NewSource(cfg.Catalog))
}

func provideCatalogReader(catalog hospital.Catalog) recommender.HospitalSource {
	return catalog
}

func provideEvaluationObserver(metrics *telemetry.Metrics) evaluation.Observer {
	return metrics
}

// provideValkeyClient returns a nil client when Valkey is disabled or
// unreachable; consumers fall back to in-process implementations.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) (valkey.Client, func()) {
	noop := func() {}
	if !cfg.Cache.Valkey.Enabled {
		return nil, noop
	}
	opt, err := buildValkeyOptions(cfg.Cache.Valkey)
	if err != nil {
		logger.Error("invalid valkey configuration, using in-process cache and queue", "error", err)
		return nil, noop
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, using in-process cache and queue", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, using in-process cache and queue", "error", err)
		client.Close()
		return nil, noop
	}
	logger.Info("valkey enabled", "addr", cfg.Cache.Valkey.Addr)
	return client, client.Close
}

func buildValkeyOptions(cfg config.ValkeyConfig) (valkey.ClientOption, error) {
	if strings.Contains(cfg.Addr, "://") {
		opt, err := valkey.ParseURL(cfg.Addr)
		if err != nil {
			return valkey.ClientOption{}, err
		}
		if cfg.Password != "" {
			opt.Password = cfg.Password
		}
		return opt, nil
	}
	return valkey.ClientOption{InitAddress: []string{cfg.Addr}, Password: cfg.Password}, nil
}

func provideTableStore(cfg *config.Config, client valkey.Client) hospital.Store {
	if client == nil {
		return tablecache.NewMemoryStore()
	}
	return tablecache.NewValkeyStore(client, cfg.Cache.Valkey.Prefix)
}

// providePostgresPool returns a nil pool when no DSN is configured or the
// database cannot be reached.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, func()) {
	noop := func() {}
	dsn := strings.TrimSpace(cfg.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, hospital snapshots stay in memory")
		return nil, noop
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, hospital snapshots stay in memory", "error", err)
		return nil, noop
	}
	if cfg.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Postgres.MaxConns
	}
	if cfg.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, hospital snapshots stay in memory", "error", err)
		return nil, noop
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, hospital snapshots stay in memory", "error", err)
		pool.Close()
		return nil, noop
	}
	return pool, pool.Close
}

func provideHospitalRepository(pool *pgxpool.Pool, logger *slog.Logger) hospital.Repository {
	if pool == nil {
		return hospitalrepo.NewMemoryRepository()
	}
	repo := hospitalrepo.NewPostgresRepository(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, hospital snapshots stay in memory", "error", err)
		return hospitalrepo.NewMemoryRepository()
	}
	logger.Info("postgres hospital repository enabled")
	return repo
}

// provideJobQueue delivers refresh jobs through Valkey when available so any
// replica can pick them up; otherwise jobs run in-process.
func provideJobQueue(cfg *config.Config, client valkey.Client, catalog hospital.Catalog, logger *slog.Logger) (hospital.JobQueue, func()) {
	handler := refreshqueue.NewCatalogHandler(catalog, refreshqueue.DefaultJobTimeout, logger)
	if client == nil {
		return refreshqueue.NewImmediateQueue(handler), func() {}
	}
	queue := refreshqueue.NewValkeyQueue(client, cfg.Cache.Valkey.Prefix+":jobs", logger)
	queue.SetHandler(handler)
	return queue, queue.Close
}
