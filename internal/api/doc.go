// Package api implements the administrative HTTP API for the background job
// subsystem: job submission and inspection, dead-letter retry, on-demand
// overdue scans and cache maintenance.
//
// Handlers translate HTTP concerns into calls on the job queue, the scanner
// and the cache. Errors are mapped to status codes by MapErrorToStatusCode
// and clients only ever see sanitized messages.
package api
