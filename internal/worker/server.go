package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/config"
)

// Server is the worker server
type Server struct {
	logger    *zap.Logger
	config    *config.Config
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
}

// Dependencies holds dependencies for workers
type Dependencies struct {
	Traces     TraceReader
	Reconciler Reconciler
	// ObjectStore is nil when MinIO is not configured; exports are then not served
	ObjectStore ObjectStore
}

// NewServer creates a new worker server
func NewServer(logger *zap.Logger, cfg *config.Config, deps *Dependencies) (*Server, error) {
	opt := redisOpt(cfg)

	server := asynq.NewServer(
		opt,
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				cfg.Worker.QueueDefault: 3,
				cfg.Worker.QueueLow:     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
			Logger: &asynqLogger{logger: logger},
		},
	)

	mux := asynq.NewServeMux()
	registerHandlers(mux, logger, cfg, deps)

	return &Server{
		logger:    logger,
		config:    cfg,
		server:    server,
		mux:       mux,
		scheduler: asynq.NewScheduler(opt, nil),
	}, nil
}

// registerHandlers wires the task handlers that the dependencies allow
func registerHandlers(mux *asynq.ServeMux, logger *zap.Logger, cfg *config.Config, deps *Dependencies) {
	if deps.ObjectStore != nil && cfg.Worker.ExportEnabled {
		exportWorker := NewExportWorker(logger, deps.Traces, deps.ObjectStore, cfg.MinIO.Bucket)
		mux.HandleFunc(TypeExecutionExport, exportWorker.ProcessTask)
	} else {
		logger.Warn("execution exports are disabled")
	}

	if deps.Reconciler != nil {
		reconcileWorker := NewReconcileWorker(logger, deps.Reconciler, cfg.Reconcile.Timeout)
		mux.HandleFunc(TypeReconcileOrphans, reconcileWorker.ProcessTask)
	}
}

// Start starts the worker server
func (s *Server) Start() error {
	if err := s.registerScheduledTasks(); err != nil {
		return fmt.Errorf("failed to register scheduled tasks: %w", err)
	}

	go func() {
		if err := s.scheduler.Run(); err != nil {
			s.logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	s.logger.Info("starting worker server",
		zap.Int("concurrency", s.config.Worker.Concurrency),
	)

	return s.server.Run(s.mux)
}

// Stop stops the worker server
func (s *Server) Stop() {
	s.server.Shutdown()
	s.scheduler.Shutdown()
}

// registerScheduledTasks registers periodic tasks with the scheduler
func (s *Server) registerScheduledTasks() error {
	if !s.config.Reconcile.Enabled {
		return nil
	}

	_, err := s.scheduler.Register(
		s.config.Reconcile.Cron,
		NewReconcileOrphansTask(),
		asynq.Queue(s.config.Worker.QueueLow),
		// a slow run must not pile up behind itself
		asynq.Unique(s.config.Reconcile.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to register reconcile task: %w", err)
	}

	s.logger.Info("scheduled orphan reconciliation",
		zap.String("cron", s.config.Reconcile.Cron),
		zap.Duration("timeout", s.config.Reconcile.Timeout),
	)
	return nil
}

// asynqLogger adapts zap.Logger to asynq.Logger
type asynqLogger struct {
	logger *zap.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
