package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option customizes a single Enqueue call.
type Option func(*enqueueOptions)

type enqueueOptions struct {
	id               string
	attempts         int
	backoff          Backoff
	delay            time.Duration
	runAt            time.Time
	removeOnComplete bool
	removeOnFail     bool
}

// WithJobID sets a stable id so repeated submissions collapse into one job.
func WithJobID(id string) Option {
	return func(o *enqueueOptions) { o.id = id }
}

// WithAttempts sets the maximum number of attempts.
func WithAttempts(n int) Option {
	return func(o *enqueueOptions) { o.attempts = n }
}

// WithBackoff sets the retry delay policy.
func WithBackoff(t BackoffType, delay time.Duration) Option {
	return func(o *enqueueOptions) { o.backoff = Backoff{Type: t, Delay: delay} }
}

// WithDelay postpones the first delivery by d.
func WithDelay(d time.Duration) Option {
	return func(o *enqueueOptions) { o.delay = d }
}

// WithRunAt postpones the first delivery until t.
func WithRunAt(t time.Time) Option {
	return func(o *enqueueOptions) { o.runAt = t }
}

// RemoveOnComplete controls whether a completed job is deleted.
func RemoveOnComplete(remove bool) Option {
	return func(o *enqueueOptions) { o.removeOnComplete = remove }
}

// RemoveOnFail controls whether a permanently failed job is deleted.
func RemoveOnFail(remove bool) Option {
	return func(o *enqueueOptions) { o.removeOnFail = remove }
}

// Client submits jobs to a single queue.
type Client struct {
	store  Store
	queue  string
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a Client for queue. An empty queue uses DefaultQueue.
func NewClient(store Store, queue string, logger *slog.Logger) *Client {
	if queue == "" {
		queue = DefaultQueue
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		store:  store,
		queue:  queue,
		logger: logger.With("component", "job_client", "queue", queue),
		now:    time.Now,
	}
}

// Queue returns the queue name jobs are submitted to.
func (c *Client) Queue() string {
	return c.queue
}

// Enqueue serializes payload and submits a job of the given type.
// Unless overridden, jobs get DefaultMaxAttempts attempts with exponential
// backoff, are removed on completion and retained on final failure.
func (c *Client) Enqueue(ctx context.Context, jobType string, payload any, opts ...Option) (Handle, error) {
	if strings.TrimSpace(jobType) == "" {
		return Handle{}, fmt.Errorf("%w: type is required", ErrInvalidJob)
	}

	o := enqueueOptions{
		attempts:         DefaultMaxAttempts,
		backoff:          DefaultBackoff(),
		removeOnComplete: true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	data, err := encodePayload(payload)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to encode payload for %s: %w", jobType, err)
	}

	now := c.now().UTC()
	runAt := now
	if !o.runAt.IsZero() {
		runAt = o.runAt.UTC()
	}
	if o.delay > 0 {
		runAt = now.Add(o.delay)
	}

	id := o.id
	if id == "" {
		id = uuid.New().String()
	}

	j := &Job{
		ID:               id,
		Queue:            c.queue,
		Type:             jobType,
		Payload:          data,
		State:            StateWaiting,
		MaxAttempts:      o.attempts,
		Backoff:          o.backoff,
		RemoveOnComplete: o.removeOnComplete,
		RemoveOnFail:     o.removeOnFail,
		RunAt:            runAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := j.Validate(); err != nil {
		return Handle{}, err
	}

	h, err := c.store.Enqueue(ctx, j)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}

	if h.Created {
		c.logger.InfoContext(ctx, "job enqueued", "job_id", h.ID, "job_type", jobType, "run_at", runAt)
	} else {
		c.logger.DebugContext(ctx, "job already enqueued", "job_id", h.ID, "job_type", jobType)
	}
	return h, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(p) == 0 {
			return json.RawMessage("{}"), nil
		}
		if !json.Valid(p) {
			return nil, errors.New("payload is not valid JSON")
		}
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
