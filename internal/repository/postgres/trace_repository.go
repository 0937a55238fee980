package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/pkg/database"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/migrations"
)

// TraceRepository handles execution and step persistence in PostgreSQL
type TraceRepository struct {
	db *database.PostgresDB
}

// NewTraceRepository creates a new trace repository
func NewTraceRepository(db *database.PostgresDB) *TraceRepository {
	return &TraceRepository{db: db}
}

// Migrate creates the tables if they do not exist yet
func (r *TraceRepository) Migrate(ctx context.Context) error {
	stmts, err := migrations.Postgres()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}

// Ping checks the connection
func (r *TraceRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// SaveExecution inserts an execution or updates its status, completion
// time and metadata. Other columns are never rewritten. A stored execution
// that already finished is left as is and a precondition error returned.
func (r *TraceRepository) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	query := `
		INSERT INTO executions (id, name, description, status, started_at, completed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			completed_at = EXCLUDED.completed_at,
			metadata = EXCLUDED.metadata
		WHERE executions.status = 'running'
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		string(exec.ID),
		exec.Name,
		nullableString(exec.Description),
		string(exec.Status),
		exec.StartedAt,
		exec.CompletedAt,
		jsonObject(exec.Metadata),
	)
	if err != nil {
		return apperrors.Persistence("save execution", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.Precondition("execution already finished").
			WithDetail("execution_id", string(exec.ID))
	}
	return nil
}

// SaveStep inserts a step. Steps are never updated.
func (r *TraceRepository) SaveStep(ctx context.Context, step *domain.Step) error {
	query := `
		INSERT INTO steps (id, execution_id, name, step_type, timestamp, duration_ms, input, output, reasoning, evaluations, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	evaluations := step.Evaluations
	if evaluations == nil {
		evaluations = []domain.Evaluation{}
	}

	_, err := r.db.Pool.Exec(ctx, query,
		string(step.ID),
		string(step.ExecutionID),
		step.Name,
		step.StepType,
		step.Timestamp,
		step.DurationMs,
		jsonObject(step.Input),
		jsonObject(step.Output),
		step.Reasoning,
		evaluations,
		jsonObject(step.Metadata),
	)
	if err != nil {
		return apperrors.Persistence("save step", err)
	}
	return nil
}

const executionColumns = `id, name, description, status, started_at, completed_at, metadata`

// GetExecution retrieves an execution by ID
func (r *TraceRepository) GetExecution(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE id = $1`

	exec, err := scanExecution(r.db.Pool.QueryRow(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Execution")
		}
		return nil, apperrors.Persistence("get execution", err)
	}
	return exec, nil
}

// GetStepsByExecution retrieves the steps of an execution ordered by timestamp
func (r *TraceRepository) GetStepsByExecution(ctx context.Context, id domain.ExecutionID) ([]domain.Step, error) {
	query := `
		SELECT id, execution_id, name, step_type, timestamp, duration_ms, input, output, reasoning, evaluations, metadata
		FROM steps
		WHERE execution_id = $1
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, string(id))
	if err != nil {
		return nil, apperrors.Persistence("get steps", err)
	}
	defer rows.Close()

	steps := []domain.Step{}
	for rows.Next() {
		var (
			step        domain.Step
			stepID      string
			executionID string
		)
		if err := rows.Scan(
			&stepID,
			&executionID,
			&step.Name,
			&step.StepType,
			&step.Timestamp,
			&step.DurationMs,
			&step.Input,
			&step.Output,
			&step.Reasoning,
			&step.Evaluations,
			&step.Metadata,
		); err != nil {
			return nil, apperrors.Persistence("get steps", err)
		}
		step.ID = domain.StepID(stepID)
		step.ExecutionID = domain.ExecutionID(executionID)
		step.Timestamp = step.Timestamp.UTC()
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence("get steps", err)
	}

	return steps, nil
}

// GetRecentExecutions lists executions newest first
func (r *TraceRepository) GetRecentExecutions(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		return nil, apperrors.Validation("limit must be positive")
	}
	query := `SELECT ` + executionColumns + ` FROM executions ORDER BY started_at DESC, id DESC LIMIT $1`
	return r.listExecutions(ctx, "list executions", query, limit)
}

// GetRunningStartedBefore lists executions still running that started before cutoff
func (r *TraceRepository) GetRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions WHERE status = 'running' AND started_at < $1 ORDER BY started_at ASC`
	return r.listExecutions(ctx, "list running executions", query, cutoff)
}

func (r *TraceRepository) listExecutions(ctx context.Context, op, query string, args ...any) ([]domain.Execution, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Persistence(op, err)
	}
	defer rows.Close()

	executions := []domain.Execution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, apperrors.Persistence(op, err)
		}
		executions = append(executions, *exec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Persistence(op, err)
	}
	return executions, nil
}

func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var (
		exec        domain.Execution
		id          string
		status      string
		description *string
	)
	if err := row.Scan(
		&id,
		&exec.Name,
		&description,
		&status,
		&exec.StartedAt,
		&exec.CompletedAt,
		&exec.Metadata,
	); err != nil {
		return nil, err
	}

	exec.ID = domain.ExecutionID(id)
	exec.Status = domain.ExecutionStatus(status)
	exec.StartedAt = exec.StartedAt.UTC()
	if exec.CompletedAt != nil {
		t := exec.CompletedAt.UTC()
		exec.CompletedAt = &t
	}
	if description != nil {
		exec.Description = *description
	}
	return &exec, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// jsonObject keeps NOT NULL jsonb columns populated when a map is nil
func jsonObject[M ~map[string]any](m M) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return map[string]any(m)
}
