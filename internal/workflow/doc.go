// Package workflow drives multi-stage decision pipelines and records a trace
// of each run.
//
// A Driver starts an execution, runs its stages one after another and
// persists every produced step before the next stage begins, so a stored
// trace is always complete up to the last stage that ran. When a stage
// fails, or the context is cancelled, the execution is finished as failed
// with the error text in its metadata and the stage error is returned.
//
// CompetitorSelection is the bundled pipeline: it picks the best competitor
// for a reference product out of a candidate catalogue.
package workflow
