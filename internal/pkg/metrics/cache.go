package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var cacheRequests = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "xray_cache_requests_total",
		Help: "Trace cache lookups by result (hit, miss, error)",
	},
	[]string{"result"},
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// RecordCacheLookup counts a trace cache lookup
func RecordCacheLookup(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}
