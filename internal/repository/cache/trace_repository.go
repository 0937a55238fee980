// Package cache puts a Redis read-through cache in front of a trace store.
// Only terminal executions are cached, since a running trace may still grow.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/decisionxray/xray/internal/domain"
	"github.com/decisionxray/xray/internal/pkg/circuitbreaker"
	"github.com/decisionxray/xray/internal/pkg/metrics"
	"github.com/decisionxray/xray/internal/rowmap"
)

const keyPrefix = "xray:trace:"

// Store is the backing trace store
type Store interface {
	Ping(ctx context.Context) error
	SaveExecution(ctx context.Context, exec *domain.Execution) error
	SaveStep(ctx context.Context, step *domain.Step) error
	GetExecution(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error)
	GetStepsByExecution(ctx context.Context, id domain.ExecutionID) ([]domain.Step, error)
	GetRecentExecutions(ctx context.Context, limit int) ([]domain.Execution, error)
	GetRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Execution, error)
}

// TraceRepository caches complete traces in Redis
type TraceRepository struct {
	next    Store
	client  redis.Cmdable
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewTraceRepository wraps next with a cache
func NewTraceRepository(next Store, client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *TraceRepository {
	logger = logger.Named("trace_cache")
	return &TraceRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			Name:        "redis",
			MaxFailures: 5,
			Cooldown:    30 * time.Second,
			OnStateChange: func(name string, from, to circuitbreaker.State) {
				logger.Warn("cache circuit state changed",
					zap.String("breaker", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
			},
		}),
		logger: logger,
	}
}

func key(id domain.ExecutionID) string {
	return keyPrefix + string(id)
}

// Ping checks the backing store. Redis is optional and reported separately.
func (r *TraceRepository) Ping(ctx context.Context) error {
	return r.next.Ping(ctx)
}

// SaveExecution writes through and drops the cached trace
func (r *TraceRepository) SaveExecution(ctx context.Context, exec *domain.Execution) error {
	if err := r.next.SaveExecution(ctx, exec); err != nil {
		return err
	}
	r.invalidate(ctx, exec.ID)
	return nil
}

// SaveStep writes through and drops the cached trace
func (r *TraceRepository) SaveStep(ctx context.Context, step *domain.Step) error {
	if err := r.next.SaveStep(ctx, step); err != nil {
		return err
	}
	r.invalidate(ctx, step.ExecutionID)
	return nil
}

// GetExecution reads from the cache, falling back to the store. A terminal
// execution read from the store is cached together with its steps.
func (r *TraceRepository) GetExecution(ctx context.Context, id domain.ExecutionID) (*domain.Execution, error) {
	if trace, ok := r.lookup(ctx, id); ok {
		return trace.Execution, nil
	}

	exec, err := r.next.GetExecution(ctx, id)
	if err != nil {
		return nil, err
	}
	if exec.Status.IsTerminal() {
		r.fill(ctx, exec)
	}
	return exec, nil
}

// GetStepsByExecution reads from the cache, falling back to the store
func (r *TraceRepository) GetStepsByExecution(ctx context.Context, id domain.ExecutionID) ([]domain.Step, error) {
	if trace, ok := r.lookup(ctx, id); ok {
		return trace.Steps, nil
	}
	return r.next.GetStepsByExecution(ctx, id)
}

// GetRecentExecutions is not cached
func (r *TraceRepository) GetRecentExecutions(ctx context.Context, limit int) ([]domain.Execution, error) {
	return r.next.GetRecentExecutions(ctx, limit)
}

// GetRunningStartedBefore is not cached
func (r *TraceRepository) GetRunningStartedBefore(ctx context.Context, cutoff time.Time) ([]domain.Execution, error) {
	return r.next.GetRunningStartedBefore(ctx, cutoff)
}

func (r *TraceRepository) lookup(ctx context.Context, id domain.ExecutionID) (*domain.ExecutionWithSteps, bool) {
	var data []byte
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		b, err := r.client.Get(ctx, key(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		data = b
		return err
	})
	if err != nil {
		metrics.RecordCacheLookup(metrics.CacheError)
		if !errors.Is(err, circuitbreaker.ErrOpen) {
			r.logger.Debug("cache read failed", zap.String("execution_id", string(id)), zap.Error(err))
		}
		return nil, false
	}
	if data == nil {
		metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	}

	var doc rowmap.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		metrics.RecordCacheLookup(metrics.CacheError)
		r.logger.Warn("dropping undecodable cache entry", zap.String("execution_id", string(id)), zap.Error(err))
		r.invalidate(ctx, id)
		return nil, false
	}
	trace, err := doc.Trace()
	if err != nil {
		metrics.RecordCacheLookup(metrics.CacheError)
		r.invalidate(ctx, id)
		return nil, false
	}

	metrics.RecordCacheLookup(metrics.CacheHit)
	return trace, true
}

func (r *TraceRepository) fill(ctx context.Context, exec *domain.Execution) {
	steps, err := r.next.GetStepsByExecution(ctx, exec.ID)
	if err != nil {
		return
	}

	data, err := json.Marshal(rowmap.NewDocument(&domain.ExecutionWithSteps{Execution: exec, Steps: steps}, time.Now()))
	if err != nil {
		r.logger.Warn("failed to encode trace for cache", zap.String("execution_id", string(exec.ID)), zap.Error(err))
		return
	}

	err = r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.client.Set(ctx, key(exec.ID), data, r.ttl).Err()
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		r.logger.Debug("cache write failed", zap.String("execution_id", string(exec.ID)), zap.Error(err))
	}
}

func (r *TraceRepository) invalidate(ctx context.Context, id domain.ExecutionID) {
	err := r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.client.Del(ctx, key(id)).Err()
	})
	if err != nil && !errors.Is(err, circuitbreaker.ErrOpen) {
		r.logger.Warn("cache invalidation failed", zap.String("execution_id", string(id)), zap.Error(err))
	}
}
