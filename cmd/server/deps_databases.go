package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/pkg/database"
)

// Databases holds the connections the configured backends need
type Databases struct {
	Postgres   *database.PostgresDB
	ClickHouse *database.ClickHouseDB
	Redis      *database.RedisDB
}

// initDatabases opens only the connections the configuration asks for
func initDatabases(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Databases, error) {
	dbs := &Databases{}

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		dbs.Postgres = pgDB
	case config.StoreBackendClickHouse:
		chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
		}
		dbs.ClickHouse = chDB
	}

	if cfg.Redis.Enabled {
		redisDB, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			dbs.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		dbs.Redis = redisDB
	} else {
		logger.Warn("redis disabled, caching, rate limiting and exports are off")
	}

	return dbs, nil
}

// Close closes all database connections
func (d *Databases) Close() {
	if d.Postgres != nil {
		d.Postgres.Close()
	}
	if d.ClickHouse != nil {
		_ = d.ClickHouse.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}
