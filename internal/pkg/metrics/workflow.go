package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	executionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xray_executions_started_total",
			Help: "Total number of executions started",
		},
	)

	executionsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_executions_finished_total",
			Help: "Total number of executions finished, by terminal status",
		},
		[]string{"status"},
	)

	stepsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "xray_steps_recorded_total",
			Help: "Total number of steps persisted",
		},
		[]string{"step_type"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "xray_stage_duration_seconds",
			Help:    "Wall time spent in a pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step_type"},
	)

	executionsReconciled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "xray_executions_reconciled_total",
			Help: "Executions left running that were closed by reconciliation",
		},
	)
)

// RecordExecutionStarted counts a started execution
func RecordExecutionStarted() {
	executionsStarted.Inc()
}

// RecordExecutionFinished counts a finished execution
func RecordExecutionFinished(status string) {
	executionsFinished.WithLabelValues(status).Inc()
}

// RecordStep counts a persisted step and observes the stage's wall time
func RecordStep(stepType string, duration time.Duration) {
	stepsRecorded.WithLabelValues(stepType).Inc()
	stageDuration.WithLabelValues(stepType).Observe(duration.Seconds())
}

// RecordReconciled counts executions closed by reconciliation
func RecordReconciled(n int) {
	executionsReconciled.Add(float64(n))
}
