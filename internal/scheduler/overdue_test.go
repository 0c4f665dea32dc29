package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/tasks-api/internal/cache"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/processor"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFinder struct {
	tasks []domain.Task
	err   error
	calls int
}

func (f *fakeFinder) FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	f.calls++
	return f.tasks, f.err
}

type failingEnqueuer struct{}

func (failingEnqueuer) Enqueue(context.Context, string, any, ...job.Option) (job.Handle, error) {
	return job.Handle{}, errors.New("queue unavailable")
}

var scanTime = time.Date(2026, 4, 2, 13, 25, 0, 0, time.UTC)

type scannerFixture struct {
	scanner *OverdueScanner
	finder  *fakeFinder
	cache   *cache.Cache
	redis   *miniredis.Miniredis
	jobs    *job.MemoryStore
}

func newFixture(t *testing.T, tasks ...domain.Task) *scannerFixture {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	f := &scannerFixture{
		finder: &fakeFinder{tasks: tasks},
		cache:  cache.New(client, "test", log),
		redis:  mr,
		jobs:   job.NewMemoryStore(),
	}
	f.scanner = NewOverdueScanner(f.finder, f.cache, job.NewClient(f.jobs, "", log), 0, log)
	f.scanner.now = func() time.Time { return scanTime }
	return f
}

func TestOverdueScanner_QueriesStoreOnCacheMiss(t *testing.T) {
	f := newFixture(t, domain.Task{ID: "a"}, domain.Task{ID: "b"})
	ctx := context.Background()

	res, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)

	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, []string{"a", "b"}, res.TaskIDs)
	assert.True(t, res.Enqueued)
	assert.Equal(t, "overdue-tasks-2026-04-02T13", res.JobID)
	assert.Equal(t, 1, f.finder.calls)

	var cached []domain.Task
	hit, err := f.cache.Get(ctx, OverdueCacheKey, &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, cached, 2)
	assert.Equal(t, "a", cached[0].ID)
	assert.Equal(t, "b", cached[1].ID)
	assert.Equal(t, DefaultOverdueTTL, f.redis.TTL("test:"+OverdueCacheKey))

	queued, err := f.jobs.Get(ctx, res.JobID)
	require.NoError(t, err)
	assert.Equal(t, processor.TypeOverdueNotification, queued.Type)
	assert.JSONEq(t, `{"taskIds":["a","b"]}`, string(queued.Payload))
	assert.Equal(t, 3, queued.MaxAttempts)
	assert.Equal(t, job.DefaultBackoff(), queued.Backoff)
	assert.True(t, queued.RemoveOnComplete)
	assert.False(t, queued.RemoveOnFail)
}

func TestOverdueScanner_CacheHitSkipsStore(t *testing.T) {
	f := newFixture(t, domain.Task{ID: "from-store"})
	ctx := context.Background()

	due := scanTime.Add(-2 * time.Hour)
	cached := []domain.Task{
		{ID: "x", Status: domain.TaskStatusPending, DueDate: &due},
		{ID: "y", Status: domain.TaskStatusPending, DueDate: &due},
	}
	require.NoError(t, f.cache.Set(ctx, OverdueCacheKey, cached, time.Minute))

	res, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, []string{"x", "y"}, res.TaskIDs)
	assert.Zero(t, f.finder.calls)
}

func TestOverdueScanner_StoreResultFeedsLaterCacheHit(t *testing.T) {
	due := scanTime.Add(-time.Hour)
	f := newFixture(t, domain.Task{ID: "a", Status: domain.TaskStatusPending, DueDate: &due})
	ctx := context.Background()

	_, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)

	res, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, []string{"a"}, res.TaskIDs)
	assert.Equal(t, 1, f.finder.calls)
}

func TestOverdueScanner_EmptyCachedListFallsBackToStore(t *testing.T) {
	f := newFixture(t, domain.Task{ID: "a"})
	ctx := context.Background()

	require.NoError(t, f.cache.Set(ctx, OverdueCacheKey, []domain.Task{}, time.Minute))

	res, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)
	assert.Equal(t, 1, f.finder.calls)
}

func TestOverdueScanner_NothingOverdue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.False(t, res.Enqueued)
	assert.Empty(t, res.TaskIDs)
	assert.False(t, f.redis.Exists("test:"+OverdueCacheKey))

	counts, err := f.jobs.Counts(ctx, job.DefaultQueue)
	require.NoError(t, err)
	assert.Zero(t, counts[job.StateWaiting])
}

func TestOverdueScanner_StoreErrorIsReturned(t *testing.T) {
	f := newFixture(t)
	f.finder.err = errors.New("db down")

	_, err := f.scanner.CheckOverdueTasks(context.Background())
	assert.ErrorIs(t, err, f.finder.err)
}

func TestOverdueScanner_SameHourCollapsesIntoOneJob(t *testing.T) {
	f := newFixture(t, domain.Task{ID: "a"})
	ctx := context.Background()

	first, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)
	second, err := f.scanner.CheckOverdueTasks(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.JobID, second.JobID)
	counts, err := f.jobs.Counts(ctx, job.DefaultQueue)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[job.StateWaiting])
}

func TestOverdueScanner_EnqueueFailureIsNotAnError(t *testing.T) {
	f := newFixture(t, domain.Task{ID: "a"})
	f.scanner.queue = failingEnqueuer{}

	res, err := f.scanner.CheckOverdueTasks(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Enqueued)
	assert.Equal(t, []string{"a"}, res.TaskIDs)
}

func TestOverdueScanner_CacheOutageFailsOpen(t *testing.T) {
	f := newFixture(t, domain.Task{ID: "a"})
	f.redis.Close()

	res, err := f.scanner.CheckOverdueTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceStore, res.Source)
	assert.True(t, res.Enqueued)
}

func TestOverdueJobID(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	assert.Equal(t, "overdue-tasks-2026-04-02T11", OverdueJobID(time.Date(2026, 4, 2, 13, 59, 0, 0, loc)))
}
