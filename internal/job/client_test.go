package job

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(store Store, now time.Time) *Client {
	c := NewClient(store, "test-queue", discardLogger())
	c.now = func() time.Time { return now }
	return c
}

func TestClient_EnqueueDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	client := newTestClient(store, now)

	h, err := client.Enqueue(context.Background(), "process_task", map[string]string{"taskId": "t1"})
	require.NoError(t, err)
	assert.True(t, h.Created)
	assert.NotEmpty(t, h.ID)

	j, err := store.Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, "test-queue", j.Queue)
	assert.Equal(t, "process_task", j.Type)
	assert.Equal(t, StateWaiting, j.State)
	assert.Equal(t, DefaultMaxAttempts, j.MaxAttempts)
	assert.Equal(t, DefaultBackoff(), j.Backoff)
	assert.True(t, j.RemoveOnComplete)
	assert.False(t, j.RemoveOnFail)
	assert.Equal(t, now, j.RunAt)
	assert.JSONEq(t, `{"taskId":"t1"}`, string(j.Payload))
}

func TestClient_EnqueueOptions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	client := newTestClient(store, now)

	h, err := client.Enqueue(context.Background(), "task-status-update", nil,
		WithJobID("custom-id"),
		WithAttempts(5),
		WithBackoff(BackoffFixed, 2*time.Second),
		WithDelay(time.Minute),
		RemoveOnComplete(false),
		RemoveOnFail(true),
	)
	require.NoError(t, err)
	assert.Equal(t, Handle{ID: "custom-id", Created: true}, h)

	j, err := store.Get(context.Background(), "custom-id")
	require.NoError(t, err)
	assert.Equal(t, 5, j.MaxAttempts)
	assert.Equal(t, Backoff{Type: BackoffFixed, Delay: 2 * time.Second}, j.Backoff)
	assert.Equal(t, now.Add(time.Minute), j.RunAt)
	assert.False(t, j.RemoveOnComplete)
	assert.True(t, j.RemoveOnFail)
	assert.JSONEq(t, `{}`, string(j.Payload))
}

func TestClient_EnqueueRunAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	client := newTestClient(store, now)

	at := now.Add(2 * time.Hour)
	h, err := client.Enqueue(context.Background(), "process_task", json.RawMessage(`{"a":1}`), WithRunAt(at))
	require.NoError(t, err)

	j, err := store.Get(context.Background(), h.ID)
	require.NoError(t, err)
	assert.Equal(t, at, j.RunAt)
	assert.JSONEq(t, `{"a":1}`, string(j.Payload))
}

func TestClient_EnqueueDeduplicates(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	client := newTestClient(store, time.Now())
	ctx := context.Background()

	first, err := client.Enqueue(ctx, "process_task", nil, WithJobID("task-1"))
	require.NoError(t, err)
	second, err := client.Enqueue(ctx, "process_task", nil, WithJobID("task-1"))
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.ID, second.ID)

	counts, err := store.Counts(ctx, "test-queue")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StateWaiting])
}

func TestClient_EnqueueValidation(t *testing.T) {
	t.Parallel()

	client := newTestClient(NewMemoryStore(), time.Now())
	ctx := context.Background()

	_, err := client.Enqueue(ctx, " ", nil)
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = client.Enqueue(ctx, "process_task", nil, WithAttempts(0))
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = client.Enqueue(ctx, "process_task", json.RawMessage(`{broken`))
	assert.Error(t, err)

	_, err = client.Enqueue(ctx, "process_task", make(chan int))
	assert.Error(t, err)
}

type failingStore struct {
	Store
	err error
}

func (s failingStore) Enqueue(ctx context.Context, j *Job) (Handle, error) {
	return Handle{}, s.err
}

func TestClient_EnqueueStoreError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	client := newTestClient(failingStore{err: storeErr}, time.Now())

	_, err := client.Enqueue(context.Background(), "process_task", nil)
	assert.ErrorIs(t, err, storeErr)
	assert.Contains(t, err.Error(), "failed to enqueue process_task job")
}
