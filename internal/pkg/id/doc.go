// Package id provides identifier generation for decision traces.
//
// This package generates:
//   - Execution IDs: exec_<unix-ms>_<suffix>
//   - Step IDs: step_<unix-ms>_<suffix>
//   - UUID v4 identifiers (request IDs)
//
// The millisecond component keeps identifiers roughly sortable by creation
// time; the random base36 suffix separates records created within the same
// millisecond. The prefix namespaces each record kind, so an execution ID can
// never equal a step ID.
//
// All functions are safe for concurrent use and never fail.
package id
