package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/handler"
	"github.com/decisionxray/xray/internal/middleware"
	"github.com/decisionxray/xray/internal/repository/cache"
	"github.com/decisionxray/xray/internal/service"
	"github.com/decisionxray/xray/internal/worker"
	"github.com/decisionxray/xray/internal/workflow"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	Logger *zap.Logger

	Databases *Databases
	Store     cache.Store

	// nil when Redis is disabled
	ExportClient *worker.Client
	RunLimiter   *middleware.RateLimitMiddleware

	ExecutionService *service.ExecutionService

	Handlers *Handlers
}

// Handlers holds all handler instances
type Handlers struct {
	Health     *handler.HealthHandler
	Executions *handler.ExecutionHandler
	Docs       *handler.DocsHandler
}

// initDependencies initializes all dependencies
func initDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	dbs, err := initDatabases(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	deps.Databases = dbs

	store, err := initTraceStore(ctx, cfg, dbs, logger)
	if err != nil {
		dbs.Close()
		return nil, err
	}
	deps.Store = store

	selection := workflow.NewCompetitorSelection(
		workflow.NewDriver(store, logger),
		workflow.NewStaticCatalog(),
		workflow.CriteriaFromConfig(cfg.Workflow),
	)

	var exports service.ExportQueue
	if dbs.Redis != nil {
		deps.ExportClient = worker.NewClient(cfg)
		if cfg.Worker.ExportEnabled {
			exports = deps.ExportClient
		}

		if cfg.RateLimit.Enabled {
			deps.RunLimiter = middleware.NewRateLimitMiddleware(dbs.Redis.Client, logger, middleware.RateLimitConfig{
				Max:    cfg.RateLimit.RunsPerWindow,
				Window: cfg.RateLimit.Window,
				Prefix: "ratelimit:runs",
			})
		}
	}

	deps.ExecutionService = service.NewExecutionService(store, selection, exports, logger)
	deps.Handlers = initHandlers(deps)

	return deps, nil
}

// initHandlers initializes all handlers
func initHandlers(deps *Dependencies) *Handlers {
	checks := map[string]handler.Pinger{
		"store": deps.Store,
	}
	if deps.Databases.Redis != nil {
		checks["redis"] = deps.Databases.Redis
	}

	return &Handlers{
		Health:     handler.NewHealthHandler(checks, appVersion),
		Executions: handler.NewExecutionHandler(deps.ExecutionService, deps.Logger),
		Docs:       handler.NewDocsHandler(),
	}
}

// Close releases every connection
func (d *Dependencies) Close() {
	if d.ExportClient != nil {
		if err := d.ExportClient.Close(); err != nil {
			d.Logger.Warn("failed to close export client", zap.Error(err))
		}
	}
	if d.Databases != nil {
		d.Databases.Close()
	}
}
