package clickhouse

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decisionxray/xray/internal/config"
	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/pkg/database"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
)

// getTestDB returns a database connection for integration tests.
// Skips the test if the database is not available.
func getTestDB(t *testing.T) *database.ClickHouseDB {
	if os.Getenv("CLICKHOUSE_TEST_HOST") == "" {
		t.Skip("Skipping integration test: CLICKHOUSE_TEST_HOST not set")
		return nil
	}

	cfg := config.ClickHouseConfig{
		Host:     os.Getenv("CLICKHOUSE_TEST_HOST"),
		Port:     9000,
		Database: os.Getenv("CLICKHOUSE_TEST_DB"),
		User:     os.Getenv("CLICKHOUSE_TEST_USER"),
		Password: os.Getenv("CLICKHOUSE_TEST_PASS"),
	}
	if cfg.Database == "" {
		cfg.Database = "test_xray"
	}

	db, err := database.NewClickHouse(context.Background(), cfg)
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to ClickHouse: %v", err)
		return nil
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestStepRecordConversion(t *testing.T) {
	step := domain.RecordStep(domain.RecordStepInput{
		ExecutionID: "exec_1735732800000_abc1234",
		Name:        "Rank and Select",
		StepType:    "rank_and_select",
		Input:       map[string]any{"candidates_count": 6},
		Reasoning:   "ranked",
		Evaluations: []domain.Evaluation{
			domain.NewEvaluation("B0COMP01", "HydroFlask", true, domain.EvaluationOptions{Score: domain.Float64(0.87)}),
		},
	})

	rec, err := toStepRecord(step)
	require.NoError(t, err)
	assert.Equal(t, "{}", rec.Output)
	assert.Equal(t, "{}", rec.Metadata)
	assert.Contains(t, rec.Evaluations, `"itemId":"B0COMP01"`)

	back, err := rec.toDomain()
	require.NoError(t, err)
	assert.Equal(t, step.ID, back.ID)
	assert.Equal(t, float64(6), back.Input["candidates_count"])
	require.Len(t, back.Evaluations, 1)
	assert.Equal(t, 0.87, *back.Evaluations[0].Score)
}

func TestStepRecordConversion_EmptyEvaluations(t *testing.T) {
	step := domain.RecordStep(domain.RecordStepInput{ExecutionID: "exec_1", Name: "x", StepType: "x"})
	rec, err := toStepRecord(step)
	require.NoError(t, err)
	assert.Equal(t, "[]", rec.Evaluations)
}

func TestExecutionRecordConversion(t *testing.T) {
	completed := time.Date(2025, 1, 1, 12, 0, 5, 0, time.UTC)
	rec := executionRecord{
		ID:          "exec_1",
		Name:        "run",
		Status:      "completed",
		StartedAt:   completed.Add(-5 * time.Second),
		CompletedAt: &completed,
		Metadata:    `{"selectedCompetitor":{"asin":"B0COMP01"}}`,
	}

	exec, err := rec.toDomain()
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusCompleted, exec.Status)
	assert.Equal(t, 5*time.Second, exec.Duration())
	assert.Equal(t, map[string]any{"asin": "B0COMP01"}, exec.Metadata["selectedCompetitor"])

	rec.Metadata = "{not json"
	_, err = rec.toDomain()
	assert.Error(t, err)
}

func TestTraceRepository_Integration(t *testing.T) {
	db := getTestDB(t)
	repo := NewTraceRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Migrate(ctx))

	exec := domain.StartExecution(domain.CreateExecutionInput{Name: "clickhouse", Metadata: domain.Metadata{"a": 0, "b": 2}})
	require.NoError(t, repo.SaveExecution(ctx, exec))

	step := domain.RecordStep(domain.RecordStepInput{ExecutionID: exec.ID, Name: "a", StepType: "a", Reasoning: "r"})
	require.NoError(t, repo.SaveStep(ctx, step))
	assert.True(t, apperrors.IsPersistence(repo.SaveStep(ctx, step)))

	done, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{
		Status:   domain.ExecutionStatusFailed,
		Metadata: domain.Metadata{"a": 1},
	})
	require.NoError(t, err)
	require.NoError(t, repo.SaveExecution(ctx, done))

	late, err := domain.FinishExecution(exec, domain.CompleteExecutionInput{Status: domain.ExecutionStatusCompleted})
	require.NoError(t, err)
	assert.True(t, apperrors.IsPrecondition(repo.SaveExecution(ctx, late)))

	got, err := repo.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutionStatusFailed, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, float64(1), got.Metadata["a"])

	steps, err := repo.GetStepsByExecution(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, step.ID, steps[0].ID)

	_, err = repo.GetExecution(ctx, "exec_missing")
	assert.True(t, apperrors.IsNotFound(err))
}
