package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/repository/memory"
)

// recordingStore wraps the memory store and logs every call
type recordingStore struct {
	*memory.TraceRepository

	mu              sync.Mutex
	calls           []string
	failStepAt      int
	failExecutionAt int
	executionSaves  int
	stepSaves       int
}

func newRecordingStore() *recordingStore {
	return &recordingStore{TraceRepository: memory.NewTraceRepository()}
}

func (s *recordingStore) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	s.mu.Lock()
	s.executionSaves++
	n := s.executionSaves
	s.calls = append(s.calls, "execution:"+string(exec.Status))
	s.mu.Unlock()
	if s.failExecutionAt == n {
		return apperrors.Persistence("save execution", errors.New("connection reset"))
	}
	return s.TraceRepository.SaveExecution(context.WithoutCancel(ctx), exec)
}

func (s *recordingStore) SaveStep(ctx context.Context, step *domain.Step) error {
	s.mu.Lock()
	s.stepSaves++
	n := s.stepSaves
	s.calls = append(s.calls, "step:"+step.StepType)
	s.mu.Unlock()
	if s.failStepAt == n {
		return apperrors.Persistence("save step", errors.New("connection reset"))
	}
	return s.TraceRepository.SaveStep(context.WithoutCancel(ctx), step)
}

func okStage(name string, ran *[]string) Stage {
	return Stage{
		Name: name,
		Run: func(_ context.Context, id domain.ExecutionID) (*domain.Step, error) {
			*ran = append(*ran, name)
			return domain.RecordStep(domain.RecordStepInput{
				ExecutionID: id,
				Name:        name,
				StepType:    name,
				Reasoning:   name + " done",
			}), nil
		},
	}
}

func failingStage(name string, err error) Stage {
	return Stage{
		Name: name,
		Run: func(context.Context, domain.ExecutionID) (*domain.Step, error) {
			return nil, err
		},
	}
}

func TestDriver_Success(t *testing.T) {
	store := newRecordingStore()
	driver := NewDriver(store, zap.NewNop())
	var ran []string

	result, err := driver.Run(context.Background(),
		domain.CreateExecutionInput{Name: "pipeline", Metadata: domain.Metadata{"ref": "x"}},
		[]Stage{okStage("a", &ran), okStage("b", &ran)},
		func() domain.Metadata { return domain.Metadata{"winner": "b"} },
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, domain.ExecutionStatusCompleted, result.Execution.Status)
	assert.Equal(t, domain.Metadata{"ref": "x", "winner": "b"}, result.Execution.Metadata)
	require.Len(t, result.Steps, 2)

	// each step is persisted before the next stage runs
	assert.Equal(t, []string{"execution:running", "step:a", "step:b", "execution:completed"}, store.calls)

	stored, err := store.GetExecution(context.Background(), result.Execution.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestDriver_StageFailure(t *testing.T) {
	store := newRecordingStore()
	driver := NewDriver(store, zap.NewNop())
	boom := errors.New("ranking exploded")
	var ran []string

	result, err := driver.Run(context.Background(),
		domain.CreateExecutionInput{Name: "pipeline"},
		[]Stage{okStage("a", &ran), failingStage("rank", boom), okStage("never", &ran)},
		nil,
	)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "rank", stageErr.Stage)
	assert.Equal(t, []string{"a"}, ran)

	ctx := context.Background()
	stored, err := store.GetExecution(ctx, stageErr.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusFailed, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, "ranking exploded", stored.Metadata["error"])

	steps, err := store.GetStepsByExecution(ctx, stageErr.ExecutionID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "a", steps[0].StepType)
}

func TestDriver_StepPersistenceFailure(t *testing.T) {
	store := newRecordingStore()
	store.failStepAt = 2
	driver := NewDriver(store, zap.NewNop())
	var ran []string

	_, err := driver.Run(context.Background(),
		domain.CreateExecutionInput{Name: "pipeline"},
		[]Stage{okStage("a", &ran), okStage("b", &ran), okStage("c", &ran)},
		nil,
	)
	require.Error(t, err)
	assert.True(t, apperrors.IsPersistence(err))
	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, "execution:failed", store.calls[len(store.calls)-1])
}

func TestDriver_InitialSaveFailure(t *testing.T) {
	store := newRecordingStore()
	store.failExecutionAt = 1
	driver := NewDriver(store, zap.NewNop())
	var ran []string

	result, err := driver.Run(context.Background(), domain.CreateExecutionInput{Name: "p"},
		[]Stage{okStage("a", &ran)}, nil)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsPersistence(err))
	assert.Empty(t, ran)
}

func TestDriver_FailedFinalizeStillReturnsStageError(t *testing.T) {
	store := newRecordingStore()
	store.failExecutionAt = 2
	driver := NewDriver(store, zap.NewNop())
	boom := errors.New("boom")

	_, err := driver.Run(context.Background(), domain.CreateExecutionInput{Name: "p"},
		[]Stage{failingStage("a", boom)}, nil)
	assert.ErrorIs(t, err, boom)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	stored, getErr := store.GetExecution(context.Background(), stageErr.ExecutionID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ExecutionStatusRunning, stored.Status)
}

func TestDriver_Cancellation(t *testing.T) {
	store := newRecordingStore()
	driver := NewDriver(store, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	var ran []string

	cancelling := Stage{
		Name: "a",
		Run: func(_ context.Context, id domain.ExecutionID) (*domain.Step, error) {
			ran = append(ran, "a")
			cancel()
			return domain.RecordStep(domain.RecordStepInput{ExecutionID: id, Name: "a", StepType: "a"}), nil
		},
	}

	_, err := driver.Run(ctx, domain.CreateExecutionInput{Name: "p"},
		[]Stage{cancelling, okStage("b", &ran)}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"a"}, ran)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "b", stageErr.Stage)

	stored, getErr := store.GetExecution(context.Background(), stageErr.ExecutionID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.ExecutionStatusFailed, stored.Status)
	assert.Equal(t, context.Canceled.Error(), stored.Metadata["error"])
}

func TestDriver_NilStep(t *testing.T) {
	store := newRecordingStore()
	driver := NewDriver(store, zap.NewNop())

	_, err := driver.Run(context.Background(), domain.CreateExecutionInput{Name: "p"},
		[]Stage{{Name: "empty", Run: func(context.Context, domain.ExecutionID) (*domain.Step, error) { return nil, nil }}},
		nil)
	assert.ErrorIs(t, err, ErrNilStep)
}
