package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/pkg/database"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/migrations"
)

// TraceRepository handles execution and step persistence in ClickHouse.
// Executions live in a ReplacingMergeTree keyed by id, so a save is an
// insert of a newer version and reads use FINAL.
type TraceRepository struct {
	db  *database.ClickHouseDB
	now func() time.Time
}

// NewTraceRepository creates a new trace repository
func NewTraceRepository(db *database.ClickHouseDB) *TraceRepository {
	return &TraceRepository{db: db, now: time.Now}
}

// Migrate creates the tables if they do not exist yet
func (r *TraceRepository) Migrate(ctx context.Context) error {
	stmts, err := migrations.ClickHouse()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	for _, stmt := range stmts {
		if err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}

// Ping checks the connection
func (r *TraceRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

type executionRecord struct {
	ID          string     `ch:"id"`
	Name        string     `ch:"name"`
	Description string     `ch:"description"`
	Status      string     `ch:"status"`
	StartedAt   time.Time  `ch:"started_at"`
	CompletedAt *time.Time `ch:"completed_at"`
	Metadata    string     `ch:"metadata"`
}

type stepRecord struct {
	ID          string    `ch:"id"`
	ExecutionID string    `ch:"execution_id"`
	Name        string    `ch:"name"`
	StepType    string    `ch:"step_type"`
	Timestamp   time.Time `ch:"timestamp"`
	DurationMs  *int64    `ch:"duration_ms"`
	Input       string    `ch:"input"`
	Output      string    `ch:"output"`
	Reasoning   string    `ch:"reasoning"`
	Evaluations string    `ch:"evaluations"`
	Metadata    string    `ch:"metadata"`
}

// SaveExecution writes a new version of the execution row. A finished
// execution is rejected with a precondition error. ClickHouse has no
// conditional insert, so the check and the write are not atomic.
func (r *TraceRepository) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	var stored []struct {
		Status string `ch:"status"`
	}
	if err := r.db.Select(ctx, &stored,
		`SELECT status FROM executions FINAL WHERE id = ?`,
		string(exec.ID),
	); err != nil {
		return apperrors.Persistence("save execution", err)
	}
	if len(stored) > 0 && domain.ExecutionStatus(stored[0].Status).IsTerminal() {
		return apperrors.Precondition("execution already finished").
			WithDetail("execution_id", string(exec.ID))
	}

	metadata, err := encodeJSON(exec.Metadata, "{}")
	if err != nil {
		return apperrors.Persistence("save execution", err)
	}

	query := `
		INSERT INTO executions (id, name, description, status, started_at, completed_at, metadata, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if err := r.db.Exec(ctx, query,
		string(exec.ID),
		exec.Name,
		exec.Description,
		string(exec.Status),
		exec.StartedAt,
		exec.CompletedAt,
		metadata,
		r.now().UTC(),
	); err != nil {
		return apperrors.Persistence("save execution", err)
	}
	return nil
}

// SaveStep inserts a step. A step id that is already stored is rejected.
func (r *TraceRepository) SaveStep(ctx context.Context, step *domain.Step) error {
	var existing []struct {
		N uint64 `ch:"n"`
	}
	if err := r.db.Select(ctx, &existing,
		`SELECT count() AS n FROM steps WHERE execution_id = ? AND id = ?`,
		string(step.ExecutionID), string(step.ID),
	); err != nil {
		return apperrors.Persistence("save step", err)
	}
	if len(existing) > 0 && existing[0].N > 0 {
		return apperrors.Persistence("save step", fmt.Errorf("step %s already exists", step.ID))
	}

	rec, err := toStepRecord(step)
	if err != nil {
		return apperrors.Persistence("save step", err)
	}

	query := `
		INSERT INTO steps (id, execution_id, name, step_type, timestamp, duration_ms, input, output, reasoning, evaluations, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	if err := r.db.Exec(ctx, query,
		rec.ID,
		rec.ExecutionID,
		rec.Name,
		rec.StepType,
		rec.Timestamp,
		rec.DurationMs,
		rec.Input,
		rec.Output,
		rec.Reasoning,
		rec.Evaluations,
		rec.Metadata,
	); err != nil {
		return apperrors.Persistence("save step", err)
	}
	return nil
}

const executionColumns = `id, name, description, status, started_at, completed_at, metadata`

// GetExecution retrieves the latest version of an execution
func (r *TraceRepository) GetExecution(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error) {
	var records []executionRecord
	query := `SELECT ` + executionColumns + ` FROM executions FINAL WHERE id = ? LIMIT 1`
	if err := r.db.Select(ctx, &records, query, string(id)); err != nil {
		return nil, apperrors.Persistence("get execution", err)
	}
	if len(records) == 0 {
		return nil, apperrors.NotFound("Execution")
	}
	exec, err := records[0].toDomain()
	if err != nil {
		return nil, apperrors.Persistence("get execution", err)
	}
	return exec, nil
}

// GetStepsByExecution retrieves the steps of an execution ordered by timestamp
func (r *TraceRepository) GetStepsByExecution(ctx context.Context, id domain.ExecutionID) ([]domain.Step, error) {
	var records []stepRecord
	query := `
		SELECT id, execution_id, name, step_type, timestamp, duration_ms, input, output, reasoning, evaluations, metadata
		FROM steps
		WHERE execution_id = ?
		ORDER BY timestamp ASC, id ASC
	`
	if err := r.db.Select(ctx, &records, query, string(id)); err != nil {
		return nil, apperrors.Persistence("get steps", err)
	}

	steps := make([]domain.Step, 0, len(records))
	for _, rec := range records {
		step, err := rec.toDomain()
		if err != nil {
			return nil, apperrors.Persistence("get steps", err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// GetRecentExecutions lists executions newest first
func (r *TraceRepository) GetRecentExecutions(ctx context.Context, limit int) ([]domain.Execution, error) {
	if limit <= 0 {
		return nil, apperrors.Validation("limit must be positive")
	}
	query := `SELECT ` + executionColumns + ` FROM executions FINAL ORDER BY started_at DESC, id DESC LIMIT ?`
	return r.listExecutions(ctx, "list executions", query, limit)
}

// GetRunningStartedBefore lists executions still running that started before cutoff
func (r *TraceRepository) GetRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Execution, error) {
	query := `SELECT ` + executionColumns + ` FROM executions FINAL WHERE status = 'running' AND started_at < ? ORDER BY started_at ASC`
	return r.listExecutions(ctx, "list running executions", query, cutoff.UTC())
}

func (r *TraceRepository) listExecutions(ctx context.Context, op, query string, args ...any) ([]domain.Execution, error) {
	var records []executionRecord
	if err := r.db.Select(ctx, &records, query, args...); err != nil {
		return nil, apperrors.Persistence(op, err)
	}

	executions := make([]domain.Execution, 0, len(records))
	for _, rec := range records {
		exec, err := rec.toDomain()
		if err != nil {
			return nil, apperrors.Persistence(op, err)
		}
		executions = append(executions, *exec)
	}
	return executions, nil
}

func (rec executionRecord) toDomain() (*domain.Execution, error) {
	exec := &domain.Execution{
		ID:          domain.ExecutionID(rec.ID),
		Name:        rec.Name,
		Description: rec.Description,
		Status:      domain.ExecutionStatus(rec.Status),
		StartedAt:   rec.StartedAt.UTC(),
	}
	if rec.CompletedAt != nil {
		t := rec.CompletedAt.UTC()
		exec.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(rec.Metadata), &exec.Metadata); err != nil {
		return nil, fmt.Errorf("execution %s metadata: %w", rec.ID, err)
	}
	return exec, nil
}

func toStepRecord(step *domain.Step) (stepRecord, error) {
	rec := stepRecord{
		ID:          string(step.ID),
		ExecutionID: string(step.ExecutionID),
		Name:        step.Name,
		StepType:    step.StepType,
		Timestamp:   step.Timestamp.UTC(),
		DurationMs:  step.DurationMs,
		Reasoning:   step.Reasoning,
	}

	var err error
	if rec.Input, err = encodeJSON(step.Input, "{}"); err != nil {
		return rec, err
	}
	if rec.Output, err = encodeJSON(step.Output, "{}"); err != nil {
		return rec, err
	}
	if rec.Evaluations, err = encodeJSON(step.Evaluations, "[]"); err != nil {
		return rec, err
	}
	if rec.Metadata, err = encodeJSON(step.Metadata, "{}"); err != nil {
		return rec, err
	}
	return rec, nil
}

func (rec stepRecord) toDomain() (domain.Step, error) {
	step := domain.Step{
		ID:          domain.StepID(rec.ID),
		ExecutionID: domain.ExecutionID(rec.ExecutionID),
		Name:        rec.Name,
		StepType:    rec.StepType,
		Timestamp:   rec.Timestamp.UTC(),
		DurationMs:  rec.DurationMs,
		Reasoning:   rec.Reasoning,
	}

	fields := []struct {
		name string
		raw  string
		dest any
	}{
		{"input", rec.Input, &step.Input},
		{"output", rec.Output, &step.Output},
		{"evaluations", rec.Evaluations, &step.Evaluations},
		{"metadata", rec.Metadata, &step.Metadata},
	}
	for _, f := range fields {
		if err := json.Unmarshal([]byte(f.raw), f.dest); err != nil {
			return step, fmt.Errorf("step %s %s: %w", rec.ID, f.name, err)
		}
	}
	return step, nil
}

// encodeJSON marshals v, using empty for nil maps and slices
func encodeJSON[T any](v T, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}
