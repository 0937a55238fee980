package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/pkg/database"
	chrepo "github.com/decisionxray/xray/internal/repository/clickhouse"
	"github.com/decisionxray/xray/internal/repository/memory"
	pgrepo "github.com/decisionxray/xray/internal/repository/postgres"
	"github.com/decisionxray/xray/internal/service"
	"github.com/decisionxray/xray/internal/workflow"
)

// OpenFromConfig opens the store named by the loaded configuration. The
// memory backend starts empty, which only makes sense for xray run.
func OpenFromConfig(ctx context.Context) (*service.ExecutionService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	var (
		store   service.TraceRepository
		closeFn = func() {}
	)

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		repo := pgrepo.NewTraceRepository(pgDB)
		if err := repo.Migrate(ctx); err != nil {
			pgDB.Close()
			return nil, nil, err
		}
		store, closeFn = repo, pgDB.Close
	case config.StoreBackendClickHouse:
		chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, nil, err
		}
		repo := chrepo.NewTraceRepository(chDB)
		if err := repo.Migrate(ctx); err != nil {
			_ = chDB.Close()
			return nil, nil, err
		}
		store, closeFn = repo, func() { _ = chDB.Close() }
	case config.StoreBackendMemory:
		store = memory.NewTraceRepository()
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	// the logger writes to stdout, which belongs to the command output
	return newService(store, workflow.CriteriaFromConfig(cfg.Workflow), zap.NewNop()), closeFn, nil
}

func newService(store service.TraceRepository, criteria workflow.Criteria, log *zap.Logger) *service.ExecutionService {
	selection := workflow.NewCompetitorSelection(
		workflow.NewDriver(store, log),
		workflow.NewStaticCatalog(),
		criteria,
	)
	return service.NewExecutionService(store, selection, nil, log)
}
