package memory

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionxray/xray/internal/domain"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/testutil"
)

func newExecution(t *testing.T, name string, startedAt time.Time) *domain.Execution {
	t.Helper()
	return testutil.NewTestExecution(name, startedAt)
}

var newStep = testutil.NewTestStep

func TestSaveExecution_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	exec := domain.StartExecution(domain.CreateExecutionInput{Name: "run", Metadata: domain.Metadata{"a": "b"}})

	require.NoError(t, repo.SaveExecution(ctx, exec))
	got, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusRunning, got.Status)

	done, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{Status: domain.ExecutionStatusCompleted})
	require.NoError(t, err)
	require.NoError(t, repo.SaveExecution(ctx, done))

	got, err = repo.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(*got.CompletedAt))
	assert.Equal(t, "b", got.Metadata["a"])

	recent, err := repo.GetRecentExecutions(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestSaveExecution_FinishedIsFinal(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	exec := domain.StartExecution(domain.CreateExecutionInput{Name: "run"})
	require.NoError(t, repo.SaveExecution(ctx, exec))

	reconciled, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{
		Status:   domain.ExecutionStatusFailed,
		Metadata: domain.Metadata{"error": "execution timed out"},
	})
	require.NoError(t, err)
	require.NoError(t, repo.SaveExecution(ctx, reconciled))

	late, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{Status: domain.ExecutionStatusCompleted})
	require.NoError(t, err)
	err = repo.SaveExecution(ctx, late)
	assert.True(t, apperrors.IsPrecondition(err))

	got, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusFailed, got.Status)
	assert.Equal(t, "execution timed out", got.Metadata["error"])
}

func TestGetExecution_NotFound(t *testing.T) {
	repo := NewTraceRepository()
	_, err := repo.GetExecution(context.Background(), "exec_missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSaveStep_InsertOnly(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	step := newStep("exec_1", "a", time.Now())

	require.NoError(t, repo.SaveStep(ctx, step))
	err := repo.SaveStep(ctx, step)
	assert.True(t, apperrors.IsPersistence(err))

	steps, err := repo.GetStepsByExecution(ctx, "exec_1")
	require.NoError(t, err)
	assert.Len(t, steps, 1)
}

func TestGetStepsByExecution_Ordering(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	third := newStep("exec_1", "third", base.Add(2*time.Second))
	first := newStep("exec_1", "first", base)
	secondA := newStep("exec_1", "second_a", base.Add(time.Second))
	secondB := newStep("exec_1", "second_b", base.Add(time.Second))
	other := newStep("exec_2", "other", base)

	for _, s := range []*domain.Step{third, first, secondA, secondB, other} {
		require.NoError(t, repo.SaveStep(ctx, s))
	}

	steps, err := repo.GetStepsByExecution(ctx, "exec_1")
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, []string{"first", "second_a", "second_b", "third"},
		[]string{steps[0].StepType, steps[1].StepType, steps[2].StepType, steps[3].StepType})

	empty, err := repo.GetStepsByExecution(ctx, "exec_unknown")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetRecentExecutions(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"oldest", "middle", "newest"} {
		require.NoError(t, repo.SaveExecution(ctx, newExecution(t, name, base.Add(time.Duration(i)*time.Hour))))
	}

	recent, err := repo.GetRecentExecutions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "newest", recent[0].Name)
	assert.Equal(t, "middle", recent[1].Name)

	_, err = repo.GetRecentExecutions(ctx, 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetRecentExecutions_EqualStartTimes(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	startedAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		exec := newExecution(t, "tied", startedAt)
		ids = append(ids, string(exec.ID))
		require.NoError(t, repo.SaveExecution(ctx, exec))
	}
	slices.Sort(ids)
	slices.Reverse(ids)

	for range 3 {
		recent, err := repo.GetRecentExecutions(ctx, 5)
		require.NoError(t, err)
		got := make([]string, 0, len(recent))
		for _, e := range recent {
			got = append(got, string(e.ID))
		}
		assert.Equal(t, ids, got)
	}
}

func TestGetRunningStartedBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	cutoff := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	stale := newExecution(t, "stale", cutoff.Add(-time.Hour))
	fresh := newExecution(t, "fresh", cutoff.Add(time.Minute))
	finished, err := domain.FinishExecution(newExecution(t, "finished", cutoff.Add(-time.Hour)),
		domain.CompleteExecutionInput{Status: domain.ExecutionStatusCompleted})
	require.NoError(t, err)

	for _, e := range []*domain.Execution{stale, fresh, finished} {
		require.NoError(t, repo.SaveExecution(ctx, e))
	}

	orphans, err := repo.GetRunningStartedBefore(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, stale.ID, orphans[0].ID)
}

func TestReturnedValuesAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	exec := domain.StartExecution(domain.CreateExecutionInput{Name: "run", Metadata: domain.Metadata{"a": "b"}})
	require.NoError(t, repo.SaveExecution(ctx, exec))

	exec.Metadata["a"] = "mutated"
	got, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", got.Metadata["a"])

	got.Metadata["a"] = "again"
	again, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, "b", again.Metadata["a"])
}

func TestConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewTraceRepository()
	exec := domain.StartExecution(domain.CreateExecutionInput{Name: "run"})
	require.NoError(t, repo.SaveExecution(ctx, exec))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.SaveStep(ctx, newStep(exec.ID, "parallel", time.Now()))
		}()
	}
	wg.Wait()

	steps, err := repo.GetStepsByExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Len(t, steps, 50)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := NewTraceRepository()

	err := repo.SaveExecution(ctx, domain.StartExecution(domain.CreateExecutionInput{Name: "run"}))
	assert.True(t, apperrors.IsPersistence(err))
}
