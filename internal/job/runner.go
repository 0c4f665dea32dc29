package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// Queue is the queue workers claim from
	Queue string

	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// PollInterval is how long an idle worker waits before claiming again
	PollInterval time.Duration

	// Lease is how long a claimed job stays reserved. It also bounds how
	// long a handler may run.
	Lease time.Duration

	// StalledCheckInterval defines how often expired leases are recovered
	StalledCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Queue:                DefaultQueue,
		WorkerCount:          1,
		PollInterval:         time.Second,
		Lease:                30 * time.Second,
		StalledCheckInterval: 30 * time.Second,
	}
}

// Runner claims jobs from a Store and dispatches them
type Runner struct {
	store      Store
	dispatcher *Dispatcher
	config     RunnerConfig
	logger     *slog.Logger
	instanceID string
	now        func() time.Time

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewRunner creates a new Runner
func NewRunner(store Store, dispatcher *Dispatcher, config RunnerConfig, logger *slog.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	if config.Queue == "" {
		config.Queue = defaults.Queue
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.Lease <= 0 {
		config.Lease = defaults.Lease
	}
	if config.StalledCheckInterval <= 0 {
		config.StalledCheckInterval = defaults.StalledCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		store:      store,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger.With("component", "job_runner", "queue", config.Queue),
		instanceID: uuid.New().String()[:8],
		now:        time.Now,
	}
}

// Start launches the workers and the stalled-job monitor.
// They run until ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancelFunc != nil {
		return errors.New("job runner already started")
	}

	// Recover jobs abandoned by a previous process before taking new work
	if n, err := r.RecoverStalled(ctx); err != nil {
		r.logger.ErrorContext(ctx, "failed to recover stalled jobs", "error", err)
	} else if n > 0 {
		r.logger.InfoContext(ctx, "recovered stalled jobs", "count", n)
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(runCtx, fmt.Sprintf("%s-%d", r.instanceID, i))
	}

	r.wg.Add(1)
	go r.stalledJobMonitor(runCtx)

	r.logger.InfoContext(ctx, "job runner started",
		"worker_count", r.config.WorkerCount,
		"handlers", r.dispatcher.Types())
	return nil
}

// Stop gracefully shuts down the runner, waiting for in-flight jobs
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancelFunc
	r.cancelFunc = nil
	r.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	r.wg.Wait()
	r.logger.Info("job runner stopped")
}

func (r *Runner) worker(ctx context.Context, workerID string) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", workerID)

	for {
		processed, err := r.ProcessNext(ctx, workerID)
		if err != nil && ctx.Err() == nil {
			r.logger.ErrorContext(ctx, "failed to claim job", "worker_id", workerID, "error", err)
		}

		if processed && err == nil {
			// Keep draining while jobs are ready
			if ctx.Err() != nil {
				r.logger.Debug("stopping worker", "worker_id", workerID)
				return
			}
			continue
		}

		timer := time.NewTimer(r.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Debug("stopping worker", "worker_id", workerID)
			return
		case <-timer.C:
		}
	}
}

// ProcessNext claims and processes a single job. It reports whether a job
// was claimed. Errors come from the store; handler failures are recorded on
// the job rather than returned.
func (r *Runner) ProcessNext(ctx context.Context, workerID string) (bool, error) {
	j, err := r.store.Claim(ctx, r.config.Queue, workerID, r.config.Lease)
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	if j == nil {
		return false, nil
	}

	r.processJob(ctx, j, workerID)
	return true, nil
}

func (r *Runner) processJob(ctx context.Context, j *Job, workerID string) {
	log := r.logger.With(
		"job_id", j.ID,
		"job_type", j.Type,
		"worker_id", workerID,
		"attempt", j.Attempts,
	)
	log.InfoContext(ctx, "processing job")

	jobCtx, cancel := context.WithTimeout(logger.WithLogger(ctx, log), r.config.Lease)
	res, err := r.dispatcher.Dispatch(jobCtx, j)
	if err == nil && errors.Is(jobCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("job exceeded its %s time limit", r.config.Lease)
	}
	cancel()

	// Record the outcome even when shutdown cancelled ctx
	finishCtx := context.WithoutCancel(ctx)

	if err != nil {
		outcome, failErr := r.store.Fail(finishCtx, j, err)
		switch {
		case errors.Is(failErr, ErrLeaseLost):
			log.WarnContext(ctx, "lease lost before failure could be recorded", "error", err)
		case failErr != nil:
			log.ErrorContext(ctx, "failed to record job failure", "error", failErr, "cause", err)
		case outcome == OutcomeRetried:
			log.WarnContext(ctx, "job failed, retry scheduled", "error", err, "max_attempts", j.MaxAttempts)
		default:
			log.ErrorContext(ctx, "job failed permanently", "error", err, "max_attempts", j.MaxAttempts)
		}
		return
	}

	if completeErr := r.store.Complete(finishCtx, j, res); completeErr != nil {
		if errors.Is(completeErr, ErrLeaseLost) {
			log.WarnContext(ctx, "lease lost before completion could be recorded")
			return
		}
		log.ErrorContext(ctx, "failed to record job completion", "error", completeErr)
		return
	}

	if res.Success {
		log.InfoContext(ctx, "job completed successfully")
	} else {
		log.WarnContext(ctx, "job completed with unsuccessful result", "reason", res.Error)
	}
}

// RecoverStalled returns jobs with expired leases to the queue.
func (r *Runner) RecoverStalled(ctx context.Context) (int, error) {
	n, err := r.store.RequeueStalled(ctx, r.now())
	if err != nil {
		return 0, fmt.Errorf("requeue stalled jobs: %w", err)
	}
	return n, nil
}

// stalledJobMonitor periodically recovers jobs whose worker stopped
// reporting before the lease ran out
func (r *Runner) stalledJobMonitor(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StalledCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			n, err := r.RecoverStalled(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "failed to check for stalled jobs", "error", err)
				continue
			}
			if n > 0 {
				r.logger.Info("requeued stalled jobs", "count", n)
			}
		}
	}
}
