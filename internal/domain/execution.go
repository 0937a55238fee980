package domain

import (
	"sync"
	"time"

	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/pkg/id"
)

// ExecutionID identifies an execution
type ExecutionID string

// wallClock is the time source behind now. Tests may swap it.
var wallClock = func() time.Time {
	return time.Now().UTC()
}

var (
	clockMu    sync.Mutex
	lastIssued time.Time
)

// now returns the wall clock, never earlier than a time it already issued.
// UTC() strips the monotonic reading, so a wall clock step-back would
// otherwise reorder sequential steps.
func now() time.Time {
	clockMu.Lock()
	defer clockMu.Unlock()

	ts := wallClock()
	if ts.Before(lastIssued) {
		ts = lastIssued
	}
	lastIssued = ts
	return ts
}

// Execution represents one pipeline run
type Execution struct {
	ID          ExecutionID     `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Status      ExecutionStatus `json:"status"`
	StartedAt   time.Time       `json:"startedAt"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Metadata    Metadata        `json:"metadata,omitempty"`
}

// CreateExecutionInput represents input for starting an execution
type CreateExecutionInput struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty"`
}

// CompleteExecutionInput represents input for finishing an execution
type CompleteExecutionInput struct {
	Status   ExecutionStatus `json:"status"`
	Metadata Metadata        `json:"metadata,omitempty"`
}

// IsRunning reports whether the execution has not been finished yet
func (e *Execution) IsRunning() bool {
	return e.Status == ExecutionStatusRunning
}

// Duration returns the wall time between start and completion, or zero
// while the execution is still running.
func (e *Execution) Duration() time.Duration {
	if e.CompletedAt == nil {
		return 0
	}
	return e.CompletedAt.Sub(e.StartedAt)
}

// StartExecution constructs a running execution with a fresh id
func StartExecution(input CreateExecutionInput) *Execution {
	return &Execution{
		ID:          ExecutionID(id.NewExecutionID()),
		Name:        input.Name,
		Description: input.Description,
		Status:      ExecutionStatusRunning,
		StartedAt:   now(),
		Metadata:    input.Metadata.Clone(),
	}
}

// FinishExecution returns a copy of e moved to the given terminal status.
// The metadata of the copy is e's metadata overlaid with input.Metadata.
// e itself is left untouched, also on error.
func FinishExecution(e *Execution, input CompleteExecutionInput) (*Execution, error) {
	if e == nil {
		return nil, apperrors.Precondition("execution is nil")
	}
	if e.Status.IsTerminal() {
		return nil, apperrors.Precondition("execution already finished").
			WithDetail("execution_id", string(e.ID)).
			WithDetail("status", string(e.Status))
	}
	if !input.Status.IsTerminal() {
		return nil, apperrors.Precondition("finish status must be completed or failed").
			WithDetail("status", string(input.Status))
	}

	completedAt := now()
	// wall clock can step backwards between start and finish
	if completedAt.Before(e.StartedAt) {
		completedAt = e.StartedAt
	}

	finished := *e
	finished.Status = input.Status
	finished.CompletedAt = &completedAt
	finished.Metadata = e.Metadata.Merge(input.Metadata)
	return &finished, nil
}

// ExecutionWithSteps is the composite read shape used by the API.
// Steps are ordered by timestamp ascending.
type ExecutionWithSteps struct {
	Execution *Execution `json:"execution"`
	Steps     []Step     `json:"steps"`
}
