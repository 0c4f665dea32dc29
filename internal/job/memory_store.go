package job

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store guarded by a mutex.
// It is not durable and is intended for local development and tests.
type MemoryStore struct {
	mu   sync.Mutex
	jobs map[string]*memoryEntry
	seq  int64
	now  func() time.Time
}

type memoryEntry struct {
	job Job
	seq int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]*memoryEntry),
		now:  time.Now,
	}
}

// SetClock replaces the time source. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Enqueue implements Store.
func (s *MemoryStore) Enqueue(ctx context.Context, j *Job) (Handle, error) {
	if err := j.Validate(); err != nil {
		return Handle{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[j.ID]; exists {
		return Handle{ID: j.ID, Created: false}, nil
	}

	s.seq++
	stored := cloneJob(*j)
	if stored.State == "" {
		stored.State = StateWaiting
	}
	s.jobs[j.ID] = &memoryEntry{job: stored, seq: s.seq}
	return Handle{ID: j.ID, Created: true}, nil
}

// Claim implements Store.
func (s *MemoryStore) Claim(ctx context.Context, queue, workerID string, lease time.Duration) (*Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var picked *memoryEntry
	for _, e := range s.jobs {
		if e.job.Queue != queue || e.job.State != StateWaiting || e.job.RunAt.After(now) {
			continue
		}
		if picked == nil || readyBefore(e, picked) {
			picked = e
		}
	}
	if picked == nil {
		return nil, nil
	}

	until := now.Add(lease)
	picked.job.State = StateActive
	picked.job.Attempts++
	picked.job.LockToken = uuid.New().String()
	picked.job.LockedUntil = &until
	picked.job.WorkerID = workerID
	picked.job.UpdatedAt = now

	claimed := cloneJob(picked.job)
	return &claimed, nil
}

func readyBefore(a, b *memoryEntry) bool {
	if !a.job.RunAt.Equal(b.job.RunAt) {
		return a.job.RunAt.Before(b.job.RunAt)
	}
	if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
		return a.job.CreatedAt.Before(b.job.CreatedAt)
	}
	return a.seq < b.seq
}

// leased returns the entry for j if j still holds its lease. Callers hold s.mu.
func (s *MemoryStore) leased(j *Job) (*memoryEntry, error) {
	e, ok := s.jobs[j.ID]
	if !ok || e.job.State != StateActive || e.job.LockToken == "" || e.job.LockToken != j.LockToken {
		return nil, ErrLeaseLost
	}
	return e, nil
}

// Complete implements Store.
func (s *MemoryStore) Complete(ctx context.Context, j *Job, res Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.leased(j)
	if err != nil {
		return err
	}

	if e.job.RemoveOnComplete {
		delete(s.jobs, j.ID)
		return nil
	}

	now := s.now()
	e.job.State = StateCompleted
	e.job.Result = data
	e.job.LockToken = ""
	e.job.LockedUntil = nil
	e.job.WorkerID = ""
	e.job.UpdatedAt = now
	e.job.FinishedAt = &now
	return nil
}

// Fail implements Store.
func (s *MemoryStore) Fail(ctx context.Context, j *Job, cause error) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.leased(j)
	if err != nil {
		return "", err
	}
	return s.failLocked(e, cause, s.now()), nil
}

func (s *MemoryStore) failLocked(e *memoryEntry, cause error, now time.Time) Outcome {
	outcome := ApplyFailure(&e.job, cause, now)
	if outcome == OutcomeFailed && e.job.RemoveOnFail {
		delete(s.jobs, e.job.ID)
	}
	return outcome
}

var errLeaseExpired = errors.New("lease expired before the job finished")

// RequeueStalled implements Store.
func (s *MemoryStore) RequeueStalled(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stalled []*memoryEntry
	for _, e := range s.jobs {
		if e.job.State == StateActive && e.job.LockedUntil != nil && e.job.LockedUntil.Before(now) {
			stalled = append(stalled, e)
		}
	}
	for _, e := range stalled {
		s.failLocked(e, errLeaseExpired, now)
	}
	return len(stalled), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	j := cloneJob(e.job)
	return &j, nil
}

// ListFailed implements Store. An empty queue lists failures across all queues.
func (s *MemoryStore) ListFailed(ctx context.Context, queue string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Job
	for _, e := range s.jobs {
		if e.job.State == StateFailed && (queue == "" || e.job.Queue == queue) {
			out = append(out, cloneJob(e.job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Retry implements Store.
func (s *MemoryStore) Retry(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	if e.job.State != StateFailed {
		return ErrNotRetryable
	}

	now := s.now()
	e.job.State = StateWaiting
	e.job.Attempts = 0
	e.job.RunAt = now
	e.job.FinishedAt = nil
	e.job.UpdatedAt = now
	return nil
}

// Counts implements Store.
func (s *MemoryStore) Counts(ctx context.Context, queue string) (map[State]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := map[State]int{
		StateWaiting:   0,
		StateActive:    0,
		StateCompleted: 0,
		StateFailed:    0,
	}
	for _, e := range s.jobs {
		if queue == "" || e.job.Queue == queue {
			counts[e.job.State]++
		}
	}
	return counts, nil
}

func cloneJob(j Job) Job {
	if j.Payload != nil {
		j.Payload = append(json.RawMessage(nil), j.Payload...)
	}
	if j.Result != nil {
		j.Result = append(json.RawMessage(nil), j.Result...)
	}
	if j.LockedUntil != nil {
		t := *j.LockedUntil
		j.LockedUntil = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		j.FinishedAt = &t
	}
	return j
}
