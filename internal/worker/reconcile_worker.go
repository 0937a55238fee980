package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// TypeReconcileOrphans is the task type for closing executions left running
const TypeReconcileOrphans = "reconcile:orphans"

// NewReconcileOrphansTask creates a reconciliation task
func NewReconcileOrphansTask() *asynq.Task {
	return asynq.NewTask(TypeReconcileOrphans, nil, asynq.MaxRetry(1), asynq.Timeout(5*time.Minute))
}

// Reconciler finishes executions that have been running for too long
type Reconciler interface {
	ReconcileOrphans(ctx context.Context, olderThan time.Duration) (int, error)
}

// ReconcileWorker handles reconciliation tasks
type ReconcileWorker struct {
	logger     *zap.Logger
	reconciler Reconciler
	timeout    time.Duration
}

// NewReconcileWorker creates a new reconcile worker. Executions running for
// longer than timeout are finished as failed.
func NewReconcileWorker(logger *zap.Logger, reconciler Reconciler, timeout time.Duration) *ReconcileWorker {
	return &ReconcileWorker{
		logger:     logger.Named("reconcile_worker"),
		reconciler: reconciler,
		timeout:    timeout,
	}
}

// ProcessTask processes a reconciliation task
func (w *ReconcileWorker) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	n, err := w.reconciler.ReconcileOrphans(ctx, w.timeout)
	if err != nil {
		return fmt.Errorf("reconciled %d executions before failing: %w", n, err)
	}

	w.logger.Debug("reconciliation finished",
		zap.Int("reconciled", n),
		zap.Duration("timeout", w.timeout),
	)
	return nil
}
