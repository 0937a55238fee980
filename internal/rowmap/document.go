package rowmap

import (
	"time"

	"github.com/decisionxray/xray/internal/domain"
)

// Document is a complete trace in row form, as written by exports
type Document struct {
	Execution  ExecutionRow `json:"execution"`
	Steps      []StepRow    `json:"steps"`
	ExportedAt string       `json:"exported_at"`
}

// NewDocument maps an execution and its steps to a document
func NewDocument(trace *domain.ExecutionWithSteps, exportedAt time.Time) Document {
	doc := Document{
		Execution:  FromExecution(trace.Execution),
		Steps:      make([]StepRow, 0, len(trace.Steps)),
		ExportedAt: FormatTime(exportedAt),
	}
	for i := range trace.Steps {
		doc.Steps = append(doc.Steps, FromStep(&trace.Steps[i]))
	}
	return doc
}

// Trace maps the document back to its in-process form
func (d Document) Trace() (*domain.ExecutionWithSteps, error) {
	exec, err := d.Execution.Execution()
	if err != nil {
		return nil, err
	}
	steps := make([]domain.Step, 0, len(d.Steps))
	for _, row := range d.Steps {
		step, err := row.Step()
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return &domain.ExecutionWithSteps{Execution: exec, Steps: steps}, nil
}
