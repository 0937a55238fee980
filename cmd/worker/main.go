package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/pkg/database"
	"github.com/decisionxray/xray/internal/pkg/logger"
	chrepo "github.com/decisionxray/xray/internal/repository/clickhouse"
	pgrepo "github.com/decisionxray/xray/internal/repository/postgres"
	"github.com/decisionxray/xray/internal/service"
	"github.com/decisionxray/xray/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = logger.Sync() }()

	log.Info("starting worker service")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	deps, cleanup, err := initWorkerDependencies(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("failed to initialize dependencies", zap.Error(err))
	}
	defer cleanup()

	workerServer, err := worker.NewServer(log, cfg, deps)
	if err != nil {
		log.Fatal("failed to create worker server", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- workerServer.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down worker...")
		workerServer.Stop()
	case err := <-errCh:
		if err != nil {
			log.Error("worker server error", zap.Error(err))
		}
	}

	log.Info("worker stopped")
}

// initWorkerDependencies opens the trace store and object storage. The
// worker runs in its own process, so the in-memory backend cannot serve it.
func initWorkerDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*worker.Dependencies, func(), error) {
	var (
		store   service.TraceRepository
		cleanup func()
	)

	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pgDB, err := database.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		store, cleanup = pgrepo.NewTraceRepository(pgDB), pgDB.Close
	case config.StoreBackendClickHouse:
		chDB, err := database.NewClickHouse(ctx, cfg.ClickHouse)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize ClickHouse: %w", err)
		}
		store, cleanup = chrepo.NewTraceRepository(chDB), func() { _ = chDB.Close() }
	default:
		return nil, nil, fmt.Errorf("store backend %q is not supported by the worker", cfg.Store.Backend)
	}

	// the worker never runs workflows, only reads and reconciles them
	svc := service.NewExecutionService(store, nil, nil, logger)

	deps := &worker.Dependencies{
		Traces:     svc,
		Reconciler: svc,
	}

	minioClient, err := initMinio(ctx, cfg)
	if err != nil {
		logger.Warn("failed to initialize MinIO, exports will not be processed", zap.Error(err))
	} else if minioClient != nil {
		deps.ObjectStore = minioClient
	}

	return deps, cleanup, nil
}

// initMinio connects to MinIO and makes sure the export bucket exists
func initMinio(ctx context.Context, cfg *config.Config) (*minio.Client, error) {
	if cfg.MinIO.Endpoint == "" {
		return nil, nil
	}

	client, err := minio.New(cfg.MinIO.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
		Secure: cfg.MinIO.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinIO.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIO.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return client, nil
}
