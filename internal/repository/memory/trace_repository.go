// Package memory provides an in-process trace store. Records are kept in
// their encoded row form so that callers never share memory with the store.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/decisionxray/xray/internal/domain"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/rowmap"
)

// TraceRepository stores executions and steps in memory
type TraceRepository struct {
	mu         sync.RWMutex
	executions map[domain.ExecutionID][]byte
	steps      map[domain.ExecutionID][][]byte
	stepIDs    map[domain.StepID]struct{}
}

// NewTraceRepository creates an empty store
func NewTraceRepository() *TraceRepository {
	return &TraceRepository{
		executions: make(map[domain.ExecutionID][]byte),
		steps:      make(map[domain.ExecutionID][][]byte),
		stepIDs:    make(map[domain.StepID]struct{}),
	}
}

// Ping always succeeds
func (r *TraceRepository) Ping(context.Context) error {
	return nil
}

// SaveExecution inserts or replaces an execution. An execution that is
// stored as finished is never replaced.
func (r *TraceRepository) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Persistence("save execution", err)
	}
	data, err := json.Marshal(rowmap.FromExecution(exec))
	if err != nil {
		return apperrors.Persistence("save execution", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if stored, ok := r.executions[exec.ID]; ok {
		var row rowmap.ExecutionRow
		if err := json.Unmarshal(stored, &row); err != nil {
			return apperrors.Persistence("save execution", err)
		}
		if domain.ExecutionStatus(row.Status).IsTerminal() {
			return apperrors.Precondition("execution already finished").
				WithDetail("execution_id", string(exec.ID))
		}
	}
	r.executions[exec.ID] = data
	return nil
}

// SaveStep inserts a step. A step id can only be saved once.
func (r *TraceRepository) SaveStep(ctx context.Context, step *domain.Step) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Persistence("save step", err)
	}
	data, err := json.Marshal(rowmap.FromStep(step))
	if err != nil {
		return apperrors.Persistence("save step", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.stepIDs[step.ID]; exists {
		return apperrors.Persistence("save step", fmt.Errorf("step %s already exists", step.ID))
	}
	r.stepIDs[step.ID] = struct{}{}
	r.steps[step.ExecutionID] = append(r.steps[step.ExecutionID], data)
	return nil
}

// GetExecution returns an execution by id
func (r *TraceRepository) GetExecution(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error) {
	r.mu.RLock()
	data, ok := r.executions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("Execution")
	}
	return decodeExecution(data)
}

// GetStepsByExecution returns the steps of an execution in timestamp order.
// Steps sharing a timestamp keep their insertion order.
func (r *TraceRepository) GetStepsByExecution(ctx context.Context, id domain.ExecutionID) ([]domain.Step, error) {
	r.mu.RLock()
	rows := slices.Clone(r.steps[id])
	r.mu.RUnlock()

	steps := make([]domain.Step, 0, len(rows))
	for _, data := range rows {
		var row rowmap.StepRow
		if err := json.Unmarshal(data, &row); err != nil {
			return nil, apperrors.Persistence("get steps", err)
		}
		step, err := row.Step()
		if err != nil {
			return nil, apperrors.Persistence("get steps", err)
		}
		steps = append(steps, step)
	}

	slices.SortStableFunc(steps, func(a, b domain.Step) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return steps, nil
}

// GetRecentExecutions returns up to limit executions, newest first
func (r *TraceRepository) GetRecentExecutions(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		return nil, apperrors.Validation("limit must be positive")
	}

	all, err := r.all()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(all, func(a, b domain.Execution) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(string(b.ID), string(a.ID))
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetRunningStartedBefore returns running executions started before cutoff
func (r *TraceRepository) GetRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Execution, error) {
	all, err := r.all()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(all, func(e domain.Execution) bool {
		return !e.IsRunning() || !e.StartedAt.Before(cutoff)
	}), nil
}

func (r *TraceRepository) all() ([]domain.Execution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Execution, 0, len(r.executions))
	for _, data := range r.executions {
		exec, err := decodeExecution(data)
		if err != nil {
			return nil, err
		}
		out = append(out, *exec)
	}
	return out, nil
}

func decodeExecution(data []byte) (*domain.Execution, error) {
	var row rowmap.ExecutionRow
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, apperrors.Persistence("get execution", err)
	}
	exec, err := row.Execution()
	if err != nil {
		return nil, apperrors.Persistence("get execution", err)
	}
	return exec, nil
}
