// Package rowmap renames trace records between their in-process shape and
// the persisted row shape. Row fields are snake_case and every timestamp is
// an RFC 3339 string in UTC. The mapping carries no other transformation.
package rowmap

import (
	"fmt"
	"time"

	"github.com/decisionxray/xray/internal/domain"
)

// TimeLayout is the encoding used for every timestamp in a row
const TimeLayout = time.RFC3339Nano

// ExecutionRow is the persisted form of an execution
type ExecutionRow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	StartedAt   string         `json:"started_at"`
	CompletedAt *string        `json:"completed_at,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

// StepRow is the persisted form of a step. Evaluations keep their
// in-process field names, as they are stored as one nested document.
type StepRow struct {
	ID          string              `json:"id"`
	ExecutionID string              `json:"execution_id"`
	Name        string              `json:"name"`
	StepType    string              `json:"step_type"`
	Timestamp   string              `json:"timestamp"`
	DurationMs  *int64              `json:"duration_ms,omitempty"`
	Input       map[string]any      `json:"input"`
	Output      map[string]any      `json:"output"`
	Reasoning   string              `json:"reasoning"`
	Evaluations []domain.Evaluation `json:"evaluations"`
	Metadata    map[string]any      `json:"metadata"`
}

// FormatTime encodes t for a row
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime decodes a row timestamp
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FromExecution maps an execution to its row
func FromExecution(e *domain.Execution) ExecutionRow {
	row := ExecutionRow{
		ID:          string(e.ID),
		Name:        e.Name,
		Description: e.Description,
		Status:      string(e.Status),
		StartedAt:   FormatTime(e.StartedAt),
		Metadata:    orEmpty(e.Metadata),
	}
	if e.CompletedAt != nil {
		s := FormatTime(*e.CompletedAt)
		row.CompletedAt = &s
	}
	return row
}

// Execution maps the row back to an execution
func (r ExecutionRow) Execution() (*domain.Execution, error) {
	startedAt, err := ParseTime(r.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("execution %s started_at: %w", r.ID, err)
	}

	e := &domain.Execution{
		ID:          domain.ExecutionID(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Status:      domain.ExecutionStatus(r.Status),
		StartedAt:   startedAt,
		Metadata:    r.Metadata,
	}
	if r.CompletedAt != nil {
		completedAt, err := ParseTime(*r.CompletedAt)
		if err != nil {
			return nil, fmt.Errorf("execution %s completed_at: %w", r.ID, err)
		}
		e.CompletedAt = &completedAt
	}
	return e, nil
}

// FromStep maps a step to its row
func FromStep(s *domain.Step) StepRow {
	evaluations := s.Evaluations
	if evaluations == nil {
		evaluations = []domain.Evaluation{}
	}
	return StepRow{
		ID:          string(s.ID),
		ExecutionID: string(s.ExecutionID),
		Name:        s.Name,
		StepType:    s.StepType,
		Timestamp:   FormatTime(s.Timestamp),
		DurationMs:  s.DurationMs,
		Input:       s.Input,
		Output:      s.Output,
		Reasoning:   s.Reasoning,
		Evaluations: evaluations,
		Metadata:    orEmpty(s.Metadata),
	}
}

// Step maps the row back to a step
func (r StepRow) Step() (domain.Step, error) {
	ts, err := ParseTime(r.Timestamp)
	if err != nil {
		return domain.Step{}, fmt.Errorf("step %s timestamp: %w", r.ID, err)
	}
	return domain.Step{
		ID:          domain.StepID(r.ID),
		ExecutionID: domain.ExecutionID(r.ExecutionID),
		Name:        r.Name,
		StepType:    r.StepType,
		Timestamp:   ts,
		DurationMs:  r.DurationMs,
		Input:       r.Input,
		Output:      r.Output,
		Reasoning:   r.Reasoning,
		Evaluations: r.Evaluations,
		Metadata:    r.Metadata,
	}, nil
}

func orEmpty(m domain.Metadata) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
