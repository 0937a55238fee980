package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/repository/cache"
	chrepo "github.com/decisionxray/xray/internal/repository/clickhouse"
	"github.com/decisionxray/xray/internal/repository/memory"
	pgrepo "github.com/decisionxray/xray/internal/repository/postgres"
)

// initTraceStore builds the configured trace store, migrated and wrapped in
// the read cache when Redis is available
func initTraceStore(ctx context.Context, cfg *config.Config, dbs *Databases, logger *zap.Logger) (cache.Store, error) {
	var store cache.Store

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		repo := pgrepo.NewTraceRepository(dbs.Postgres)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate PostgreSQL: %w", err)
		}
		store = repo
	case config.StoreBackendClickHouse:
		repo := chrepo.NewTraceRepository(dbs.ClickHouse)
		if err := repo.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate ClickHouse: %w", err)
		}
		store = repo
	case config.StoreBackendMemory:
		logger.Warn("using in-memory trace store, traces are lost on restart")
		store = memory.NewTraceRepository()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	if cfg.Cache.Enabled && dbs.Redis != nil {
		return cache.NewTraceRepository(store, dbs.Redis.Client, cfg.Cache.TTL, logger), nil
	}
	return store, nil
}
