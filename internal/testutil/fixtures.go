// Package testutil provides shared test fixtures for the decision trace API.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/decisionxray/xray/internal/domain"
)

// TraceWriter is the write side of a trace store
type TraceWriter interface {
	SaveExecution(ctx context.Context, exec *domain.Execution) error
	SaveStep(ctx context.Context, step *domain.Step) error
}

// NewTestExecution creates a running execution started at startedAt.
// A zero startedAt keeps the current time.
func NewTestExecution(name string, startedAt time.Time) *domain.Execution {
	exec := domain.StartExecution(domain.CreateExecutionInput{Name: name})
	if !startedAt.IsZero() {
		exec.StartedAt = startedAt
	}
	return exec
}

// NewTestStep creates a step of the given type recorded at ts.
// A zero ts keeps the current time.
func NewTestStep(execID domain.ExecutionID, stepType string, ts time.Time) *domain.Step {
	step := domain.RecordStep(domain.RecordStepInput{
		ExecutionID: execID,
		Name:        stepType,
		StepType:    stepType,
		Input:       map[string]any{"k": "v"},
		Reasoning:   "because",
	})
	if !ts.IsZero() {
		step.Timestamp = ts
	}
	return step
}

// SeedCompletedTrace writes a completed execution with a single filter step
// carrying one passing evaluation.
func SeedCompletedTrace(t *testing.T, ctx context.Context, store TraceWriter) (*domain.Execution, *domain.Step) {
	t.Helper()

	exec := NewTestExecution("seeded run", time.Time{})
	require.NoError(t, store.SaveExecution(ctx, exec))

	step := domain.RecordStep(domain.RecordStepInput{
		ExecutionID: exec.ID,
		Name:        "Apply Filters",
		StepType:    "apply_filters",
		Evaluations: []domain.Evaluation{
			domain.NewEvaluation("A", "Item A", true, domain.EvaluationOptions{Score: domain.Float64(0.5)}),
		},
	})
	require.NoError(t, store.SaveStep(ctx, step))

	done, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{Status: domain.ExecutionStatusCompleted})
	require.NoError(t, err)
	require.NoError(t, store.SaveExecution(ctx, done))
	return done, step
}
