package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/store"
)

const jobColumns = `id, queue, type, payload, state, attempts, max_attempts,
	backoff_type, backoff_delay_ms, remove_on_complete, remove_on_fail, run_at,
	lock_token, locked_until, worker_id, result, last_error,
	created_at, updated_at, finished_at`

var errLeaseExpired = errors.New("lease expired before the job finished")

// JobStore implements job.Store on a PostgreSQL jobs table.
//
// Claims use SELECT ... FOR UPDATE SKIP LOCKED so concurrent workers, in this
// process or others, never receive the same job. Every state change made by
// a worker is conditioned on the lock token issued at claim time.
type JobStore struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

var _ job.Store = (*JobStore)(nil)

// NewJobStore creates a JobStore
func NewJobStore(db *sql.DB, logger *slog.Logger) *JobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobStore{
		db:     db,
		logger: logger.With("component", "job_store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue inserts j unless its id is already taken
func (s *JobStore) Enqueue(ctx context.Context, j *job.Job) (job.Handle, error) {
	if err := j.Validate(); err != nil {
		return job.Handle{}, err
	}

	payload := j.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	state := j.State
	if state == "" {
		state = job.StateWaiting
	}

	query := `
		INSERT INTO jobs (id, queue, type, payload, state, attempts, max_attempts,
			backoff_type, backoff_delay_ms, remove_on_complete, remove_on_fail,
			run_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		j.ID,
		j.Queue,
		j.Type,
		[]byte(payload),
		string(state),
		j.Attempts,
		j.MaxAttempts,
		string(j.Backoff.Type),
		j.Backoff.Delay.Milliseconds(),
		j.RemoveOnComplete,
		j.RemoveOnFail,
		j.RunAt.UTC(),
		j.CreatedAt.UTC(),
		j.UpdatedAt.UTC(),
	)
	if err != nil {
		return job.Handle{}, fmt.Errorf("failed to insert job: %w", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return job.Handle{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return job.Handle{ID: j.ID, Created: n > 0}, nil
}

// Claim reserves the oldest ready job on queue
func (s *JobStore) Claim(ctx context.Context, queue, workerID string, lease time.Duration) (*job.Job, error) {
	now := s.now()

	query := `
		WITH picked AS (
			SELECT id FROM jobs
			WHERE queue = $1 AND state = 'waiting' AND run_at <= $2
			ORDER BY run_at, created_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE jobs
		SET state = 'active',
			attempts = jobs.attempts + 1,
			lock_token = $3,
			locked_until = $4,
			worker_id = $5,
			updated_at = $2
		FROM picked
		WHERE jobs.id = picked.id
		RETURNING ` + qualifiedJobColumns()

	j, err := scanJob(s.db.QueryRowContext(ctx, query,
		queue,
		now,
		uuid.New().String(),
		now.Add(lease),
		workerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim job: %w", MapError(err))
	}
	return j, nil
}

// Complete records the handler result for a claimed job
func (s *JobStore) Complete(ctx context.Context, j *job.Job, res job.Result) error {
	var (
		result sql.Result
		err    error
	)

	if j.RemoveOnComplete {
		result, err = s.db.ExecContext(ctx,
			`DELETE FROM jobs WHERE id = $1 AND lock_token = $2 AND state = 'active'`,
			j.ID, j.LockToken)
	} else {
		data, marshalErr := json.Marshal(res)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode job result: %w", marshalErr)
		}
		now := s.now()
		result, err = s.db.ExecContext(ctx, `
			UPDATE jobs
			SET state = 'completed', result = $3, lock_token = NULL,
				locked_until = NULL, worker_id = NULL, updated_at = $4, finished_at = $4
			WHERE id = $1 AND lock_token = $2 AND state = 'active'`,
			j.ID, j.LockToken, data, now)
	}
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", MapError(err))
	}

	return leaseResult(result)
}

// Fail records a failed attempt for a claimed job
func (s *JobStore) Fail(ctx context.Context, j *job.Job, cause error) (job.Outcome, error) {
	next := *j
	outcome := job.ApplyFailure(&next, cause, s.now())

	result, err := s.writeFailure(ctx, s.db, &next, outcome, j.LockToken)
	if err != nil {
		return "", err
	}
	if err := leaseResult(result); err != nil {
		return "", err
	}
	return outcome, nil
}

// writeFailure persists the post-failure state of next. A non-empty
// lockToken restricts the write to the lease that claimed the job.
func (s *JobStore) writeFailure(
	ctx context.Context,
	db store.DBTX,
	next *job.Job,
	outcome job.Outcome,
	lockToken string,
) (sql.Result, error) {
	var (
		result sql.Result
		err    error
	)

	if outcome == job.OutcomeFailed && next.RemoveOnFail {
		result, err = db.ExecContext(ctx,
			`DELETE FROM jobs WHERE id = $1 AND state = 'active' AND ($2 = '' OR lock_token = $2)`,
			next.ID, lockToken)
	} else {
		result, err = db.ExecContext(ctx, `
			UPDATE jobs
			SET state = $3, run_at = $4, last_error = $5, finished_at = $6,
				lock_token = NULL, locked_until = NULL, worker_id = NULL, updated_at = $7
			WHERE id = $1 AND state = 'active' AND ($2 = '' OR lock_token = $2)`,
			next.ID, lockToken, string(next.State), next.RunAt, next.LastError,
			nullTime(next.FinishedAt), next.UpdatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record job failure: %w", MapError(err))
	}
	return result, nil
}

// RequeueStalled treats expired leases as failed attempts
func (s *JobStore) RequeueStalled(ctx context.Context, now time.Time) (int, error) {
	recovered := 0

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT `+jobColumns+`
			FROM jobs
			WHERE state = 'active' AND locked_until < $1
			FOR UPDATE SKIP LOCKED`, now.UTC())
		if err != nil {
			return fmt.Errorf("failed to query stalled jobs: %w", MapError(err))
		}

		var stalled []*job.Job
		for rows.Next() {
			j, err := scanJob(rows)
			if err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan stalled job: %w", err)
			}
			stalled = append(stalled, j)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to iterate stalled jobs: %w", err)
		}
		_ = rows.Close()

		for _, j := range stalled {
			outcome := job.ApplyFailure(j, errLeaseExpired, now.UTC())
			if _, err := s.writeFailure(ctx, tx, j, outcome, ""); err != nil {
				return err
			}
			s.logger.WarnContext(ctx, "recovered stalled job",
				"job_id", j.ID,
				"job_type", j.Type,
				"attempt", j.Attempts,
				"outcome", outcome)
		}

		recovered = len(stalled)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return recovered, nil
}

// Get returns the job with the given id
func (s *JobStore) Get(ctx context.Context, id string) (*job.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, job.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", MapError(err))
	}
	return j, nil
}

// ListFailed returns retained failed jobs, most recent first
func (s *JobStore) ListFailed(ctx context.Context, queue string, limit int) ([]job.Job, error) {
	if limit <= 0 {
		limit = job.DefaultListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE state = 'failed' AND ($1 = '' OR queue = $1)
		ORDER BY updated_at DESC
		LIMIT $2`, queue, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed jobs: %w", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	jobs := []job.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

// Retry moves a failed job back to waiting with a fresh attempt budget
func (s *JobStore) Retry(ctx context.Context, id string) error {
	now := s.now()

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = 'waiting', attempts = 0, run_at = $2, finished_at = NULL, updated_at = $2
		WHERE id = $1 AND state = 'failed'`, id, now)
	if err != nil {
		return fmt.Errorf("failed to retry job: %w", MapError(err))
	}

	if err := CheckRowsAffected(result, "job"); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		// Distinguish a missing job from one in another state
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return job.ErrNotRetryable
	}
	return nil
}

// Counts returns the number of jobs in each state. An empty queue counts all queues.
func (s *JobStore) Counts(ctx context.Context, queue string) (map[job.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT state, COUNT(*)
		FROM jobs
		WHERE ($1 = '' OR queue = $1)
		GROUP BY state`, queue)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := map[job.State]int{
		job.StateWaiting:   0,
		job.StateActive:    0,
		job.StateCompleted: 0,
		job.StateFailed:    0,
	}
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[job.State(state)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate job counts: %w", err)
	}
	return counts, nil
}

func leaseResult(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return job.ErrLeaseLost
	}
	return nil
}

func qualifiedJobColumns() string {
	return `jobs.id, jobs.queue, jobs.type, jobs.payload, jobs.state, jobs.attempts,
		jobs.max_attempts, jobs.backoff_type, jobs.backoff_delay_ms,
		jobs.remove_on_complete, jobs.remove_on_fail, jobs.run_at,
		jobs.lock_token, jobs.locked_until, jobs.worker_id, jobs.result,
		jobs.last_error, jobs.created_at, jobs.updated_at, jobs.finished_at`
}

func scanJob(row rowScanner) (*job.Job, error) {
	var (
		j           job.Job
		payload     []byte
		state       string
		backoffType string
		backoffMS   int64
		lockToken   sql.NullString
		lockedUntil sql.NullTime
		workerID    sql.NullString
		result      []byte
		lastError   sql.NullString
		finishedAt  sql.NullTime
	)

	if err := row.Scan(
		&j.ID,
		&j.Queue,
		&j.Type,
		&payload,
		&state,
		&j.Attempts,
		&j.MaxAttempts,
		&backoffType,
		&backoffMS,
		&j.RemoveOnComplete,
		&j.RemoveOnFail,
		&j.RunAt,
		&lockToken,
		&lockedUntil,
		&workerID,
		&result,
		&lastError,
		&j.CreatedAt,
		&j.UpdatedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	j.Payload = json.RawMessage(payload)
	j.State = job.State(state)
	j.Backoff = job.Backoff{
		Type:  job.BackoffType(backoffType),
		Delay: time.Duration(backoffMS) * time.Millisecond,
	}
	j.LockToken = lockToken.String
	j.WorkerID = workerID.String
	j.LastError = lastError.String
	if len(result) > 0 {
		j.Result = json.RawMessage(result)
	}
	if lockedUntil.Valid {
		t := lockedUntil.Time.UTC()
		j.LockedUntil = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time.UTC()
		j.FinishedAt = &t
	}
	j.RunAt = j.RunAt.UTC()
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return &j, nil
}
