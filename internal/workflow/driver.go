package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/pkg/metrics"
)

// Store is the persistence the driver needs
type Store interface {
	SaveExecution(ctx context.Context, exec *domain.Execution) error
	SaveStep(ctx context.Context, step *domain.Step) error
}

// Stage is one unit of pipeline work. Run returns the step describing what
// the stage did.
type Stage struct {
	Name string
	Run  func(ctx context.Context, executionID domain.ExecutionID) (*domain.Step, error)
}

// Result is a finished run
type Result struct {
	Execution *domain.Execution
	Steps     []domain.Step
}

// StageError reports a run that ended in failure
type StageError struct {
	ExecutionID domain.ExecutionID
	Stage       string
	Err         error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("execution %s failed at stage %s: %v", e.ExecutionID, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrNilStep is returned when a stage reports success without a step
var ErrNilStep = errors.New("stage returned no step")

// Driver sequences stages and persists their trace
type Driver struct {
	store  Store
	logger *zap.Logger
}

// NewDriver creates a new driver
func NewDriver(store Store, logger *zap.Logger) *Driver {
	return &Driver{store: store, logger: logger}
}

// Run executes stages in order. summarize is called after the last stage
// and its result is merged into the metadata of the completed execution.
func (d *Driver) Run(
	ctx context.Context,
	input domain.CreateExecutionInput,
	stages []Stage,
	summarize func() domain.Metadata,
) (*Result, error) {
	exec := domain.StartExecution(input)
	if err := d.store.SaveExecution(ctx, exec); err != nil {
		return nil, err
	}
	metrics.RecordExecutionStarted()

	log := d.logger.With(zap.String("execution_id", string(exec.ID)))
	log.Info("execution started", zap.String("name", exec.Name), zap.Int("stages", len(stages)))

	steps := make([]domain.Step, 0, len(stages))
	for _, stage := range stages {
		step, err := d.runStage(ctx, exec.ID, stage)
		if err != nil {
			return nil, d.fail(ctx, log, exec, stage.Name, err)
		}
		steps = append(steps, *step)
	}

	var summary domain.Metadata
	if summarize != nil {
		summary = summarize()
	}
	done, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{
		Status:   domain.ExecutionStatusCompleted,
		Metadata: summary,
	})
	if err != nil {
		return nil, err
	}
	if err := d.store.SaveExecution(ctx, done); err != nil {
		log.Error("failed to persist completed execution", zap.Error(err))
		return nil, err
	}
	metrics.RecordExecutionFinished(string(done.Status))

	log.Info("execution completed",
		zap.Int("steps", len(steps)),
		zap.Duration("duration", done.Duration()),
	)

	return &Result{Execution: done, Steps: steps}, nil
}

func (d *Driver) runStage(ctx context.Context, executionID domain.ExecutionID, stage Stage) (*domain.Step, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	step, err := stage.Run(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if step == nil {
		return nil, ErrNilStep
	}
	if err := d.store.SaveStep(ctx, step); err != nil {
		return nil, err
	}
	metrics.RecordStep(step.StepType, time.Since(start))
	return step, nil
}

// fail finishes the execution as failed and returns the error for the caller.
// The failed state is persisted even when ctx is already cancelled.
func (d *Driver) fail(ctx context.Context, log *zap.Logger, exec *domain.Execution, stage string, cause error) error {
	stageErr := &StageError{ExecutionID: exec.ID, Stage: stage, Err: cause}

	failed, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{
		Status:   domain.ExecutionStatusFailed,
		Metadata: domain.Metadata{"error": cause.Error()},
	})
	if err != nil {
		log.Error("failed to finish execution", zap.Error(err))
		return stageErr
	}

	if err := d.store.SaveExecution(context.WithoutCancel(ctx), failed); err != nil {
		// the execution stays running in the store until reconciled
		log.Error("failed to persist failed execution",
			zap.String("stage", stage),
			zap.Error(err),
		)
		return stageErr
	}
	metrics.RecordExecutionFinished(string(failed.Status))

	log.Warn("execution failed",
		zap.String("stage", stage),
		zap.Error(cause),
	)
	return stageErr
}
