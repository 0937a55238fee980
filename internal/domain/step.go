package domain

import (
	"maps"
	"slices"
	"time"

	"github.com/decisionxray/xray/internal/pkg/id"
)

// StepID identifies a step
type StepID string

// Step represents one recorded stage of an execution
type Step struct {
	ID          StepID         `json:"id"`
	ExecutionID ExecutionID    `json:"executionId"`
	Name        string         `json:"name"`
	StepType    string         `json:"stepType"`
	Timestamp   time.Time      `json:"timestamp"`
	DurationMs  *int64         `json:"durationMs,omitempty"`
	Input       map[string]any `json:"input"`
	Output      map[string]any `json:"output"`
	Reasoning   string         `json:"reasoning"`
	Evaluations []Evaluation   `json:"evaluations,omitempty"`
	Metadata    Metadata       `json:"metadata,omitempty"`
}

// RecordStepInput represents input for recording a step
type RecordStepInput struct {
	ExecutionID ExecutionID
	Name        string
	StepType    string
	Input       map[string]any
	Output      map[string]any
	Reasoning   string
	DurationMs  *int64
	Evaluations []Evaluation
	Metadata    Metadata
}

// RecordStep constructs a step with a fresh id and the current time.
// Payload maps and evaluations are copied so the caller can keep mutating
// its own values without touching the record.
func RecordStep(input RecordStepInput) *Step {
	step := &Step{
		ID:          StepID(id.NewStepID()),
		ExecutionID: input.ExecutionID,
		Name:        input.Name,
		StepType:    input.StepType,
		Timestamp:   now(),
		Input:       maps.Clone(input.Input),
		Output:      maps.Clone(input.Output),
		Reasoning:   input.Reasoning,
		Evaluations: cloneEvaluations(input.Evaluations),
		Metadata:    input.Metadata.Clone(),
	}
	if input.DurationMs != nil {
		d := *input.DurationMs
		step.DurationMs = &d
	}
	return step
}

// Duration returns the caller-reported duration, if any
func (s *Step) Duration() (time.Duration, bool) {
	if s.DurationMs == nil {
		return 0, false
	}
	return time.Duration(*s.DurationMs) * time.Millisecond, true
}

// PassedCount returns how many evaluations passed
func (s *Step) PassedCount() int {
	n := 0
	for _, e := range s.Evaluations {
		if e.Passed {
			n++
		}
	}
	return n
}

func cloneEvaluations(in []Evaluation) []Evaluation {
	if in == nil {
		return nil
	}
	out := make([]Evaluation, len(in))
	for i, e := range in {
		out[i] = e.clone()
	}
	return out
}

func (e Evaluation) clone() Evaluation {
	e.Filters = slices.Clone(e.Filters)
	e.Metadata = e.Metadata.Clone()
	if e.Score != nil {
		s := *e.Score
		e.Score = &s
	}
	return e
}
