package job

import (
	"encoding/json"
	"errors"
	"time"
)

// State is the lifecycle position of a job.
type State string

// Job states.
const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateWaiting, StateActive, StateCompleted, StateFailed:
		return true
	}
	return false
}

// Outcome describes what happened to a job after a failed attempt.
type Outcome string

// Failure outcomes.
const (
	OutcomeRetried Outcome = "retried"
	OutcomeFailed  Outcome = "failed"
)

// Default retry and retention policy applied by Client.
const (
	DefaultQueue       = "task-processing"
	DefaultMaxAttempts = 3
	DefaultBackoffBase = time.Second
)

var (
	// ErrJobNotFound is returned when no job with the given id exists.
	ErrJobNotFound = errors.New("job not found")

	// ErrLeaseLost is returned when a worker reports on a job it no longer holds.
	ErrLeaseLost = errors.New("job lease lost")

	// ErrNotRetryable is returned by Retry for jobs that are not in the failed state.
	ErrNotRetryable = errors.New("job is not in failed state")

	// ErrInvalidJob is returned when a job is missing required fields.
	ErrInvalidJob = errors.New("invalid job")
)

// Job is a unit of queued work.
type Job struct {
	ID               string          `json:"id"`
	Queue            string          `json:"queue"`
	Type             string          `json:"type"`
	Payload          json.RawMessage `json:"payload"`
	State            State           `json:"state"`
	Attempts         int             `json:"attempts"`
	MaxAttempts      int             `json:"maxAttempts"`
	Backoff          Backoff         `json:"backoff"`
	RemoveOnComplete bool            `json:"removeOnComplete"`
	RemoveOnFail     bool            `json:"removeOnFail"`
	RunAt            time.Time       `json:"runAt"`
	LockToken        string          `json:"-"`
	LockedUntil      *time.Time      `json:"lockedUntil,omitempty"`
	WorkerID         string          `json:"workerId,omitempty"`
	Result           json.RawMessage `json:"result,omitempty"`
	LastError        string          `json:"lastError,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	FinishedAt       *time.Time      `json:"finishedAt,omitempty"`
}

// Validate checks the fields every store requires.
func (j *Job) Validate() error {
	switch {
	case j.ID == "":
		return errors.Join(ErrInvalidJob, errors.New("id is required"))
	case j.Queue == "":
		return errors.Join(ErrInvalidJob, errors.New("queue is required"))
	case j.Type == "":
		return errors.Join(ErrInvalidJob, errors.New("type is required"))
	case j.MaxAttempts < 1:
		return errors.Join(ErrInvalidJob, errors.New("max attempts must be at least 1"))
	}
	return j.Backoff.Validate()
}

// Exhausted reports whether the job has used its whole attempt budget.
func (j *Job) Exhausted() bool {
	return j.Attempts >= j.MaxAttempts
}

// DecodePayload unmarshals the job payload into v.
func (j *Job) DecodePayload(v any) error {
	if len(j.Payload) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(j.Payload, v)
}

// Result is what a handler reports for a job.
// A Result with Success false is recorded as-is and is not retried.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Succeeded builds a successful Result carrying data.
func Succeeded(data any) Result {
	return Result{Success: true, Data: data}
}

// Rejected builds an unsuccessful Result that will not be retried.
func Rejected(reason string) Result {
	return Result{Success: false, Error: reason}
}

// Handle identifies an enqueued job. Created is false when the id was
// already held by an existing job and nothing new was inserted.
type Handle struct {
	ID      string `json:"jobId"`
	Created bool   `json:"created"`
}
