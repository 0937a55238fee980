// Package service contains the business logic layer for decision traces.
//
// Services coordinate between handlers, workers and repositories. They depend
// on the repository interfaces defined in this package, so any store
// (Postgres, ClickHouse, in-memory, or the Redis cache in front of one) can
// back them.
//
// All services are safe for concurrent use from multiple goroutines.
package service
