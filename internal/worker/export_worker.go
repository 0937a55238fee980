package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	apperrors "github.com/decisionxray/xray/internal/pkg/errors"
	"github.com/decisionxray/xray/internal/rowmap"
)

// TypeExecutionExport is the task type for execution export
const TypeExecutionExport = "export:execution"

// ExecutionExportPayload is the payload for execution export tasks
type ExecutionExportPayload struct {
	ExecutionID domain.ExecutionID `json:"execution_id"`
}

// NewExecutionExportTask creates an execution export task
func NewExecutionExportTask(payload *ExecutionExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution export payload: %w", err)
	}
	return asynq.NewTask(TypeExecutionExport, data, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

// TraceReader loads a complete trace
type TraceReader interface {
	GetWithSteps(ctx context.Context, id domain.ExecutionID) (*domain.ExecutionWithSteps, error)
}

// ObjectStore is the part of the MinIO client used for uploads
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ExportWorker writes execution traces to object storage
type ExportWorker struct {
	logger *zap.Logger
	traces TraceReader
	store  ObjectStore
	bucket string
	now    func() time.Time
}

// NewExportWorker creates a new export worker
func NewExportWorker(logger *zap.Logger, traces TraceReader, store ObjectStore, bucket string) *ExportWorker {
	return &ExportWorker{
		logger: logger.Named("export_worker"),
		traces: traces,
		store:  store,
		bucket: bucket,
		now:    time.Now,
	}
}

// ObjectName is where an export of id taken at ts is stored
func ObjectName(id domain.ExecutionID, ts time.Time) string {
	return path.Join("exports", string(id), ts.UTC().Format("20060102T150405.000Z")+".json")
}

// ProcessTask processes an execution export task
func (w *ExportWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ExecutionExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal execution export payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.ExecutionID == "" {
		return fmt.Errorf("execution export payload has no execution id: %w", asynq.SkipRetry)
	}

	log := w.logger.With(zap.String("execution_id", string(payload.ExecutionID)))
	log.Info("processing execution export")

	trace, err := w.traces.GetWithSteps(ctx, payload.ExecutionID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn("execution to export no longer exists")
			return fmt.Errorf("export %s: %v: %w", payload.ExecutionID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load execution: %w", err)
	}

	exportedAt := w.now()
	data, err := json.MarshalIndent(rowmap.NewDocument(trace, exportedAt), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	object := ObjectName(payload.ExecutionID, exportedAt)
	if err := w.upload(ctx, object, data); err != nil {
		return err
	}

	log.Info("execution exported",
		zap.String("bucket", w.bucket),
		zap.String("object", object),
		zap.Int("steps", len(trace.Steps)),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// upload uploads data to storage
func (w *ExportWorker) upload(ctx context.Context, object string, data []byte) error {
	_, err := w.store.PutObject(ctx, w.bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload to MinIO: %w", err)
	}
	return nil
}
