package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/processor"
)

// OverdueCacheKey is the cache key holding the last scanned overdue tasks.
const OverdueCacheKey = "overdue-tasks"

// DefaultOverdueTTL is how long a scanned id list is reused.
const DefaultOverdueTTL = 600 * time.Second

// Source records where a scan found its task ids.
type Source string

// Scan sources
const (
	SourceCache Source = "cache"
	SourceStore Source = "store"
	SourceNone  Source = "none"
)

// ScanResult describes one run of the overdue scanner.
type ScanResult struct {
	Source   Source   `json:"source"`
	TaskIDs  []string `json:"taskIds"`
	JobID    string   `json:"jobId,omitempty"`
	Enqueued bool     `json:"enqueued"`
}

// OverdueFinder queries pending tasks whose due date has passed.
type OverdueFinder interface {
	FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)
}

// Cache is the subset of *cache.Cache the scanner uses.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Enqueuer submits background jobs. *job.Client satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts ...job.Option) (job.Handle, error)
}

// OverdueScanner finds overdue tasks and enqueues a notification batch.
type OverdueScanner struct {
	tasks  OverdueFinder
	cache  Cache
	queue  Enqueuer
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewOverdueScanner creates an OverdueScanner. A non-positive ttl uses
// DefaultOverdueTTL.
func NewOverdueScanner(
	tasks OverdueFinder,
	cache Cache,
	queue Enqueuer,
	ttl time.Duration,
	logger *slog.Logger,
) *OverdueScanner {
	if ttl <= 0 {
		ttl = DefaultOverdueTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OverdueScanner{
		tasks:  tasks,
		cache:  cache,
		queue:  queue,
		ttl:    ttl,
		logger: logger.With("component", "overdue_scanner"),
		now:    time.Now,
	}
}

// CheckOverdueTasks runs one scan. Only task store failures are returned;
// cache and enqueue problems are logged and reflected in the result.
func (s *OverdueScanner) CheckOverdueTasks(ctx context.Context) (ScanResult, error) {
	now := s.now().UTC()

	var cached []domain.Task
	hit, err := s.cache.Get(ctx, OverdueCacheKey, &cached)
	if err != nil {
		s.logger.WarnContext(ctx, "overdue cache lookup failed", "error", err)
	}
	if hit && len(cached) > 0 {
		s.logger.DebugContext(ctx, "using cached overdue task list", "count", len(cached))
		return s.enqueue(ctx, now, SourceCache, taskIDs(cached)), nil
	}

	tasks, err := s.tasks.FindOverdue(ctx, now)
	if err != nil {
		return ScanResult{}, fmt.Errorf("find overdue tasks: %w", err)
	}
	if len(tasks) == 0 {
		s.logger.InfoContext(ctx, "no overdue tasks found")
		return ScanResult{Source: SourceNone, TaskIDs: []string{}}, nil
	}

	if err := s.cache.Set(ctx, OverdueCacheKey, tasks, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "failed to cache overdue task list", "error", err)
	}

	return s.enqueue(ctx, now, SourceStore, taskIDs(tasks)), nil
}

func taskIDs(tasks []domain.Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func (s *OverdueScanner) enqueue(ctx context.Context, now time.Time, source Source, ids []string) ScanResult {
	res := ScanResult{Source: source, TaskIDs: ids, JobID: OverdueJobID(now)}

	h, err := s.queue.Enqueue(ctx, processor.TypeOverdueNotification,
		processor.OverdueNotificationPayload{TaskIDs: ids},
		job.WithJobID(res.JobID),
		job.WithAttempts(job.DefaultMaxAttempts),
		job.WithBackoff(job.BackoffExponential, job.DefaultBackoffBase),
		job.RemoveOnComplete(true),
		job.RemoveOnFail(false),
	)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to enqueue overdue notification job",
			"job_id", res.JobID,
			"count", len(ids),
			"error", err)
		return res
	}

	res.Enqueued = true
	s.logger.InfoContext(ctx, "overdue notification job enqueued",
		"job_id", h.ID,
		"created", h.Created,
		"count", len(ids),
		"source", source)
	return res
}

// OverdueJobID returns the batch job id for the UTC hour containing t.
func OverdueJobID(t time.Time) string {
	return "overdue-tasks-" + t.UTC().Format("2006-01-02T15")
}
