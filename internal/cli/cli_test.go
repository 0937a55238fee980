package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/dto"
	"github.com/decisionxray/xray/internal/repository/memory"
	"github.com/decisionxray/xray/internal/service"
	"github.com/decisionxray/xray/internal/workflow"
)

// execute runs the root command against store and returns its stdout
func execute(t *testing.T, store *memory.TraceRepository, args ...string) (string, error) {
	t.Helper()

	opts := &RootOptions{
		Open: func(context.Context) (*service.ExecutionService, func(), error) {
			return newService(store, workflow.DefaultCriteria(), zap.NewNop()), func() {}, nil
		},
	}
	cmd := newRootCommand(opts, "test")

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRun_Text(t *testing.T) {
	store := memory.NewTraceRepository()

	out, err := execute(t, store, "run")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:   completed")
	assert.Contains(t, out, "Recorded 4 steps")
	assert.Contains(t, out, "B0COMP01")

	recent, err := store.GetRecentExecutions(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRun_JSON(t *testing.T) {
	out, err := execute(t, memory.NewTraceRepository(), "run", "--format", "json")
	require.NoError(t, err)

	var resp dto.RunResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, 4, resp.StepsCount)
	assert.Equal(t, resp.ExecutionID, resp.Execution.ID)
	assert.Equal(t, domain.ExecutionStatusCompleted, resp.Execution.Status)
}

func TestRun_InvalidProduct(t *testing.T) {
	store := memory.NewTraceRepository()

	_, err := execute(t, store, "run", "--rating", "9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "rating")

	recent, err := store.GetRecentExecutions(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestRun_NoQualifiedCandidates(t *testing.T) {
	// nothing in the catalogue is within half to double of this price
	_, err := execute(t, memory.NewTraceRepository(), "run", "--price", "1000")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.ErrorIs(t, err, workflow.ErrNoQualifiedCandidates)
}

func TestExecutionsList(t *testing.T) {
	store := memory.NewTraceRepository()

	out, err := execute(t, store, "executions", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No executions recorded.")

	for range 3 {
		_, err := execute(t, store, "run")
		require.NoError(t, err)
	}

	out, err = execute(t, store, "executions", "list", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("completed")))

	out, err = execute(t, store, "exec", "list", "--format", "json")
	require.NoError(t, err)
	var executions []domain.Execution
	require.NoError(t, json.Unmarshal([]byte(out), &executions))
	assert.Len(t, executions, 3)
}

func TestExecutionsShow(t *testing.T) {
	store := memory.NewTraceRepository()
	_, err := execute(t, store, "run")
	require.NoError(t, err)

	recent, err := store.GetRecentExecutions(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	id := string(recent[0].ID)

	t.Run("text", func(t *testing.T) {
		out, err := execute(t, store, "executions", "show", id)
		require.NoError(t, err)
		assert.Contains(t, out, "[1] ")
		assert.Contains(t, out, "[4] ")
		assert.Contains(t, out, "(apply_filters)")
		assert.Contains(t, out, "FAIL")
		assert.Contains(t, out, "min_reviews")
		assert.NotContains(t, out, "input:")
	})

	t.Run("verbose", func(t *testing.T) {
		out, err := execute(t, store, "executions", "show", id, "-v")
		require.NoError(t, err)
		assert.Contains(t, out, "input:")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, store, "executions", "show", id, "--format", "json")
		require.NoError(t, err)

		var trace domain.ExecutionWithSteps
		require.NoError(t, json.Unmarshal([]byte(out), &trace))
		assert.Len(t, trace.Steps, 4)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := execute(t, store, "executions", "show", "exec_missing")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("requires id", func(t *testing.T) {
		_, err := execute(t, store, "executions", "show")
		require.Error(t, err)
	})
}

func TestInvalidFormat(t *testing.T) {
	_, err := execute(t, memory.NewTraceRepository(), "executions", "list", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenFailure(t *testing.T) {
	opts := &RootOptions{
		Open: func(context.Context) (*service.ExecutionService, func(), error) {
			return nil, nil, errors.New("connection refused")
		},
	}
	cmd := newRootCommand(opts, "test")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"executions", "list"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
}
