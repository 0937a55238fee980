// Package handler contains the HTTP handlers of the decision trace API.
//
// Every response uses the same envelope: {"success": true, "data": ...} on
// success and {"success": false, "error": "..."} on failure. Errors from the
// service layer are mapped to status codes through the apperrors package.
//
// # Routes
//
//   - GET  /api/executions            recent executions (?limit=, default 10)
//   - GET  /api/executions/:id        one execution with its steps
//   - POST /api/executions/run        run the competitor selection workflow
//   - POST /api/executions/:id/export queue an export to object storage
//   - GET  /health, /livez, /readyz, /version
//
// All handlers are safe for concurrent use.
package handler
