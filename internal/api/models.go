package api

import (
	"encoding/json"
	"time"

	"github.com/phrazzld/tasks-api/internal/job"
)

// EnqueueJobRequest is the body of POST /api/admin/jobs.
type EnqueueJobRequest struct {
	Type    string             `json:"type" validate:"required,max=100"`
	Payload json.RawMessage    `json:"payload"`
	Options *EnqueueJobOptions `json:"options"`
}

// EnqueueJobOptions are the optional delivery settings of an enqueue request.
type EnqueueJobOptions struct {
	JobID            string `json:"jobId"            validate:"omitempty,max=200"`
	DelayMS          int64  `json:"delayMs"          validate:"gte=0"`
	Attempts         int    `json:"attempts"         validate:"omitempty,gte=1,lte=25"`
	Backoff          string `json:"backoff"          validate:"omitempty,oneof=exponential fixed"`
	BackoffDelayMS   int64  `json:"backoffDelayMs"   validate:"gte=0"`
	RemoveOnComplete *bool  `json:"removeOnComplete"`
	RemoveOnFail     *bool  `json:"removeOnFail"`
}

// jobOptions converts the request options into client options.
func (o *EnqueueJobOptions) jobOptions() []job.Option {
	if o == nil {
		return nil
	}
	var opts []job.Option
	if o.JobID != "" {
		opts = append(opts, job.WithJobID(o.JobID))
	}
	if o.DelayMS > 0 {
		opts = append(opts, job.WithDelay(time.Duration(o.DelayMS)*time.Millisecond))
	}
	if o.Attempts > 0 {
		opts = append(opts, job.WithAttempts(o.Attempts))
	}
	if o.Backoff != "" {
		delay := job.DefaultBackoffBase
		if o.BackoffDelayMS > 0 {
			delay = time.Duration(o.BackoffDelayMS) * time.Millisecond
		}
		opts = append(opts, job.WithBackoff(job.BackoffType(o.Backoff), delay))
	}
	if o.RemoveOnComplete != nil {
		opts = append(opts, job.RemoveOnComplete(*o.RemoveOnComplete))
	}
	if o.RemoveOnFail != nil {
		opts = append(opts, job.RemoveOnFail(*o.RemoveOnFail))
	}
	return opts
}

// JobResponse is the API view of a job.
type JobResponse struct {
	ID          string          `json:"id"`
	Queue       string          `json:"queue"`
	Type        string          `json:"type"`
	State       job.State       `json:"state"`
	Payload     json.RawMessage `json:"payload"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"maxAttempts"`
	RunAt       time.Time       `json:"runAt"`
	Result      json.RawMessage `json:"result,omitempty"`
	LastError   string          `json:"lastError,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	FinishedAt  *time.Time      `json:"finishedAt,omitempty"`
}

func jobToResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Queue:       j.Queue,
		Type:        j.Type,
		State:       j.State,
		Payload:     j.Payload,
		Attempts:    j.Attempts,
		MaxAttempts: j.MaxAttempts,
		RunAt:       j.RunAt,
		Result:      j.Result,
		LastError:   j.LastError,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		FinishedAt:  j.FinishedAt,
	}
}

// FailedJobsResponse lists retained failed jobs.
type FailedJobsResponse struct {
	Queue string        `json:"queue"`
	Jobs  []JobResponse `json:"jobs"`
}

// RetryJobResponse acknowledges a requeued job.
type RetryJobResponse struct {
	JobID string    `json:"jobId"`
	State job.State `json:"state"`
}

// QueueCountsResponse reports job counts per state.
type QueueCountsResponse struct {
	Queue  string            `json:"queue"`
	Counts map[job.State]int `json:"counts"`
}

// CacheStatsResponse reports the contents of the cache namespace.
type CacheStatsResponse struct {
	Namespace string `json:"namespace"`
	KeyCount  int    `json:"keyCount"`
}
