// Package repository contains the trace store implementations.
//
// Every store persists executions and their steps and offers the same
// operations: SaveExecution (upsert by id while running), SaveStep (insert only),
// GetExecution, GetStepsByExecution (ordered by timestamp ascending),
// GetRecentExecutions (newest first) and GetRunningStartedBefore.
//
// # Stores
//
//   - postgres: pgx pool, JSONB payloads. The default backend.
//   - clickhouse: ReplacingMergeTree executions read with FINAL.
//   - memory: in-process, for tests, the CLI and local runs.
//   - cache: a Redis read-through decorator for any of the above.
//
// Interfaces are defined by their consumers (workflow, service, worker).
// Missing executions are reported as apperrors NotFound, writes to a
// finished execution as Precondition and storage failures as Persistence
// errors.
//
// All implementations are safe for concurrent use.
package repository
