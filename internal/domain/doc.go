// Package domain contains the decision trace model for xray.
//
// This package defines:
//   - Execution: one run of a multi-step decision pipeline
//   - Step: one recorded stage of an execution
//   - Evaluation: the verdict for one candidate item within a step
//   - FilterResult: the verdict of one filter rule against one candidate
//
// # Construction
//
// Every value here is produced by a pure constructor (StartExecution,
// FinishExecution, RecordStep, NewEvaluation, NewFilterResult). None of them
// perform I/O or hold state; persisting the returned values is up to the
// caller. Produced records are never mutated afterwards. FinishExecution
// returns a new Execution rather than updating the one passed in.
//
// # Lifecycle
//
// An execution starts as running and transitions exactly once to completed
// or failed. CompletedAt is set if and only if the status is terminal.
//
// # Naming Conventions
//
// Types ending in "Input" carry caller-supplied arguments to constructors.
package domain
