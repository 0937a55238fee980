package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/pkg/metrics"
	"github.com/decisionxray/xray/internal/workflow"
)

const (
	// DefaultListLimit is used when the caller gives no usable limit
	DefaultListLimit = 10
	// MaxListLimit caps a single listing
	MaxListLimit = 100
)

// CodeExportsDisabled is returned by RequestExport when no queue is configured
const CodeExportsDisabled = "EXPORTS_DISABLED"

// TraceRepository persists executions and their steps
type TraceRepository interface {
	SaveExecution(ctx context.Context, exec *domain.Execution) error
	SaveStep(ctx context.Context, step *domain.Step) error
	GetExecution(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error)
	GetStepsByExecution(ctx context.Context, id domain.ExecutionID) ([]domain.Step, error)
	GetRecentExecutions(ctx context.Context, limit int) ([]domain.Execution, error)
	GetRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Execution, error)
}

// ExportQueue schedules asynchronous exports
type ExportQueue interface {
	EnqueueExport(ctx context.Context, id domain.ExecutionID) error
}

// ExecutionService handles execution reads, runs and maintenance
type ExecutionService struct {
	repo      TraceRepository
	selection *workflow.CompetitorSelection
	exports   ExportQueue
	logger    *zap.Logger
	now       func() time.Time
}

// NewExecutionService creates a new execution service. exports may be nil,
// in which case RequestExport fails with EXPORTS_DISABLED.
func NewExecutionService(
	repo TraceRepository,
	selection *workflow.CompetitorSelection,
	exports ExportQueue,
	logger *zap.Logger,
) *ExecutionService {
	return &ExecutionService{
		repo:      repo,
		selection: selection,
		exports:   exports,
		logger:    logger.Named("executions"),
		now:       time.Now,
	}
}

// ListRecent returns the most recently started executions
func (s *ExecutionService) ListRecent(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	execs, err := s.repo.GetRecentExecutions(ctx, limit)
	if err != nil {
		return nil, err
	}
	if execs == nil {
		execs = []domain.Execution{}
	}
	return execs, nil
}

// GetWithSteps returns an execution together with its steps in timestamp order
func (s *ExecutionService) GetWithSteps(ctx context.Context, id domain.ExecutionID) (*domain.ExecutionWithSteps, error) {
	exec, err := s.repo.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}

	steps, err := s.repo.GetStepsByExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if steps == nil {
		steps = []domain.Step{}
	}

	return &domain.ExecutionWithSteps{Execution: exec, Steps: steps}, nil
}

// RunCompetitorSelection runs the competitor selection workflow for ref.
// A failed run returns a *workflow.StageError carrying the execution id.
func (s *ExecutionService) RunCompetitorSelection(ctx context.Context, ref workflow.Product) (*workflow.Result, error) {
	if s.selection == nil {
		return nil, apperrors.Internal("competitor selection is not configured")
	}
	return s.selection.Run(ctx, ref)
}

// RequestExport queues an export of the execution
func (s *ExecutionService) RequestExport(ctx context.Context, id domain.ExecutionID) error {
	if s.exports == nil {
		return apperrors.New(CodeExportsDisabled, "exports are disabled", http.StatusServiceUnavailable)
	}

	if _, err := s.repo.GetExecution(ctx, id); err != nil {
		return err
	}

	if err := s.exports.EnqueueExport(ctx, id); err != nil {
		return fmt.Errorf("failed to enqueue export: %w", err)
	}

	s.logger.Info("export requested", zap.String("execution_id", string(id)))
	return nil
}

// ReconcileOrphans finishes executions that have been running for longer
// than olderThan as failed. It returns how many were reconciled.
func (s *ExecutionService) ReconcileOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	if olderThan <= 0 {
		return 0, apperrors.Validation("reconcile timeout must be positive")
	}

	cutoff := s.now().Add(-olderThan).UTC()
	orphans, err := s.repo.GetRunningStartedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	var (
		reconciled int
		errs       []error
	)
	for i := range orphans {
		orphan := &orphans[i]

		failed, err := domain.FinishExecution(orphan, domain.CompleteExecutionInput{
			Status: domain.ExecutionStatusFailed,
			Metadata: domain.Metadata{
				"error":      "execution timed out",
				"reconciled": true,
			},
		})
		if err != nil {
			continue
		}

		if err := s.repo.SaveExecution(ctx, failed); err != nil {
			if apperrors.IsPrecondition(err) {
				// finished by its run after the scan
				s.logger.Debug("execution finished before reconcile",
					zap.String("execution_id", string(orphan.ID)),
				)
				continue
			}
			s.logger.Error("failed to reconcile execution",
				zap.String("execution_id", string(orphan.ID)),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		reconciled++
		metrics.RecordExecutionFinished(string(failed.Status))
	}

	if reconciled > 0 {
		metrics.RecordReconciled(reconciled)
		s.logger.Warn("reconciled orphaned executions",
			zap.Int("count", reconciled),
			zap.Time("cutoff", cutoff),
		)
	}

	return reconciled, errors.Join(errs...)
}
