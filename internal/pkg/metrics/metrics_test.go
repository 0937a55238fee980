package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetCounter().GetValue()
}

func TestRecordDBQuery(t *testing.T) {
	before := value(t, dbSlowQueries.WithLabelValues("postgres", "select"))

	RecordDBQuery("postgres", "select", time.Millisecond)
	RecordDBQuery("postgres", "select", 250*time.Millisecond)

	assert.Equal(t, before+1, value(t, dbSlowQueries.WithLabelValues("postgres", "select")))
}

func TestRecordDBError(t *testing.T) {
	before := value(t, dbQueryErrors.WithLabelValues("clickhouse", "insert"))
	RecordDBError("clickhouse", "insert")
	assert.Equal(t, before+1, value(t, dbQueryErrors.WithLabelValues("clickhouse", "insert")))
}

func TestWorkflowCounters(t *testing.T) {
	started := value(t, executionsStarted)
	failed := value(t, executionsFinished.WithLabelValues("failed"))
	steps := value(t, stepsRecorded.WithLabelValues("apply_filters"))
	reconciled := value(t, executionsReconciled)

	RecordExecutionStarted()
	RecordExecutionFinished("failed")
	RecordStep("apply_filters", 5*time.Millisecond)
	RecordReconciled(3)

	assert.Equal(t, started+1, value(t, executionsStarted))
	assert.Equal(t, failed+1, value(t, executionsFinished.WithLabelValues("failed")))
	assert.Equal(t, steps+1, value(t, stepsRecorded.WithLabelValues("apply_filters")))
	assert.Equal(t, reconciled+3, value(t, executionsReconciled))
}

func TestRecordCacheLookup(t *testing.T) {
	before := value(t, cacheRequests.WithLabelValues(CacheHit))
	RecordCacheLookup(CacheHit)
	RecordCacheLookup(CacheMiss)
	assert.Equal(t, before+1, value(t, cacheRequests.WithLabelValues(CacheHit)))
}
