// Package processor contains the job handlers for task background work and
// the routing table that binds them to job types.
//
// Every handler is idempotent. Validation problems produce an unsuccessful
// job.Result, which is recorded and never retried; store failures are
// returned as errors so the queue retries them with backoff.
package processor
