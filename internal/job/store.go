package job

import (
	"context"
	"time"
)

// Store persists jobs and arbitrates which worker holds each one.
//
// Implementations must guarantee that Claim never hands the same job to two
// workers while a lease is live, and that Complete and Fail only take effect
// for the lease that claimed the job.
type Store interface {
	// Enqueue inserts j unless a job with the same id exists, in which case
	// the existing job is left untouched and Handle.Created is false.
	Enqueue(ctx context.Context, j *Job) (Handle, error)

	// Claim reserves the oldest ready job on queue for workerID.
	// It returns nil, nil when no job is ready.
	Claim(ctx context.Context, queue, workerID string, lease time.Duration) (*Job, error)

	// Complete records a handler result for a claimed job.
	Complete(ctx context.Context, j *Job, res Result) error

	// Fail records a failed attempt, scheduling a retry or a final failure.
	Fail(ctx context.Context, j *Job, cause error) (Outcome, error)

	// RequeueStalled treats every active job whose lease expired before now
	// as a failed attempt. It returns the number of jobs recovered.
	RequeueStalled(ctx context.Context, now time.Time) (int, error)

	// Get returns the job with the given id or ErrJobNotFound.
	Get(ctx context.Context, id string) (*Job, error)

	// ListFailed returns retained failed jobs, most recent first.
	ListFailed(ctx context.Context, queue string, limit int) ([]Job, error)

	// Retry moves a failed job back to waiting with a fresh attempt budget.
	Retry(ctx context.Context, id string) error

	// Counts returns the number of jobs on queue in each state.
	Counts(ctx context.Context, queue string) (map[State]int, error)
}

// DefaultListLimit bounds ListFailed when the caller passes a non-positive limit.
const DefaultListLimit = 50

// ApplyFailure moves j to its post-failure state at now and reports the outcome.
// The caller decides whether a final failure with RemoveOnFail deletes the job.
func ApplyFailure(j *Job, cause error, now time.Time) Outcome {
	j.LockToken = ""
	j.LockedUntil = nil
	j.WorkerID = ""
	j.UpdatedAt = now
	if cause != nil {
		j.LastError = cause.Error()
	}

	if j.Exhausted() {
		j.State = StateFailed
		j.FinishedAt = &now
		return OutcomeFailed
	}

	j.State = StateWaiting
	j.RunAt = now.Add(j.Backoff.Next(j.Attempts))
	return OutcomeRetried
}
