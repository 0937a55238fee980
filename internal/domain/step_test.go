package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionxray/xray/internal/pkg/id"
)

func sampleStepInput() RecordStepInput {
	return RecordStepInput{
		ExecutionID: "exec_1735732800000_abc1234",
		Name:        "Apply Filters",
		StepType:    "apply_filters",
		Input:       map[string]any{"candidates": 8},
		Output:      map[string]any{"qualified": 3},
		Reasoning:   "3 of 8 candidates passed all filters",
		DurationMs:  Int64(42),
		Evaluations: []Evaluation{
			NewEvaluation("B0COMP01", "Steel Bottle", true, EvaluationOptions{
				Score: Float64(0.8),
				Filters: []FilterResult{
					NewFilterResult("price_range", true, "$24.99 is within $15.00-$59.98", 24.99, []float64{14.995, 59.98}),
				},
			}),
		},
		Metadata: Metadata{"filters_applied": 3},
	}
}

func TestRecordStep(t *testing.T) {
	input := sampleStepInput()
	step := RecordStep(input)

	assert.True(t, id.ValidateStepID(string(step.ID)))
	assert.Equal(t, input.ExecutionID, step.ExecutionID)
	assert.Equal(t, "Apply Filters", step.Name)
	assert.Equal(t, "apply_filters", step.StepType)
	assert.Equal(t, input.Input, step.Input)
	assert.Equal(t, input.Output, step.Output)
	assert.Equal(t, input.Reasoning, step.Reasoning)
	assert.Equal(t, input.Evaluations, step.Evaluations)
	assert.False(t, step.Timestamp.IsZero())

	d, ok := step.Duration()
	assert.True(t, ok)
	assert.Equal(t, 42*time.Millisecond, d)
	assert.Equal(t, 1, step.PassedCount())
}

func TestRecordStep_IdenticalArguments(t *testing.T) {
	first := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, first, first.Add(time.Millisecond))

	a := RecordStep(sampleStepInput())
	b := RecordStep(sampleStepInput())

	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Timestamp, b.Timestamp)
	assert.Equal(t, a.Input, b.Input)
	assert.Equal(t, a.Output, b.Output)
	assert.Equal(t, a.Reasoning, b.Reasoning)
}

func TestRecordStep_ClockStepsBack(t *testing.T) {
	first := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, first, first.Add(-2*time.Second), first.Add(time.Second))

	a := RecordStep(sampleStepInput())
	b := RecordStep(sampleStepInput())
	c := RecordStep(sampleStepInput())

	assert.Equal(t, first, a.Timestamp)
	assert.Equal(t, first, b.Timestamp, "held at the last issued time")
	assert.False(t, b.Timestamp.Before(a.Timestamp))
	assert.Equal(t, first.Add(time.Second), c.Timestamp)
}

func TestNow_NonDecreasingAcrossStartAndRecord(t *testing.T) {
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	withClock(t, start, start.Add(-time.Minute))

	exec := StartExecution(CreateExecutionInput{Name: "run"})
	step := RecordStep(RecordStepInput{ExecutionID: exec.ID, Name: "first", StepType: "keyword_generation"})

	assert.False(t, step.Timestamp.Before(exec.StartedAt))
}

func TestRecordStep_DoesNotShareCallerState(t *testing.T) {
	input := sampleStepInput()
	step := RecordStep(input)

	input.Input["candidates"] = 99
	input.Output["extra"] = true
	input.Metadata["filters_applied"] = 0
	*input.DurationMs = 1
	input.Evaluations[0].Passed = false
	input.Evaluations[0].Filters[0].Passed = false
	*input.Evaluations[0].Score = 0

	assert.Equal(t, 8, step.Input["candidates"])
	assert.NotContains(t, step.Output, "extra")
	assert.Equal(t, 3, step.Metadata["filters_applied"])
	assert.Equal(t, int64(42), *step.DurationMs)
	assert.True(t, step.Evaluations[0].Passed)
	assert.True(t, step.Evaluations[0].Filters[0].Passed)
	assert.Equal(t, 0.8, *step.Evaluations[0].Score)
}

func TestRecordStep_PreviousStepsUnchanged(t *testing.T) {
	first := RecordStep(sampleStepInput())
	snapshot := *first
	snapshot.Evaluations = cloneEvaluations(first.Evaluations)

	_ = RecordStep(RecordStepInput{ExecutionID: first.ExecutionID, Name: "Rank", StepType: "rank_and_select"})

	require.Equal(t, snapshot.ID, first.ID)
	assert.Equal(t, snapshot.Evaluations, first.Evaluations)
	assert.Equal(t, snapshot.Input, first.Input)
}

func TestRecordStep_OptionalFields(t *testing.T) {
	step := RecordStep(RecordStepInput{ExecutionID: "exec_1", Name: "noop", StepType: "noop", Reasoning: "nothing"})

	assert.Nil(t, step.DurationMs)
	assert.Nil(t, step.Evaluations)
	assert.Nil(t, step.Metadata)
	_, ok := step.Duration()
	assert.False(t, ok)
	assert.Zero(t, step.PassedCount())
}
