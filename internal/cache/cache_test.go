package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/tasks-api/internal/cache"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newTestCache(t *testing.T, namespace string) (*cache.Cache, *miniredis.Miniredis, *logger.TestLogBuffer) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	l, buf := logger.NewTestLogger(t)
	return cache.New(client, namespace, l), mr, buf
}

func TestCache_SetGetRoundTrip(t *testing.T) {
	c, mr, _ := newTestCache(t, "")
	ctx := context.Background()

	in := []summary{{ID: "t1", Title: "Write report"}, {ID: "t2", Title: "Ship"}}
	require.NoError(t, c.Set(ctx, "overdue-tasks", in, 600*time.Second))

	assert.True(t, mr.Exists("app_cache:overdue-tasks"), "value should be stored under the namespaced key")
	assert.Equal(t, 600*time.Second, mr.TTL("app_cache:overdue-tasks"))

	var out []summary
	found, err := c.Get(ctx, "overdue-tasks", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, in, out)
}

func TestCache_DefaultTTL(t *testing.T) {
	c, mr, _ := newTestCache(t, "ns")

	require.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.Equal(t, cache.DefaultTTL, mr.TTL("ns:k"))
}

func TestCache_Expiry(t *testing.T) {
	c, mr, _ := newTestCache(t, "ns")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 42, 10*time.Second))
	mr.FastForward(11 * time.Second)

	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Miss(t *testing.T) {
	c, _, _ := newTestCache(t, "ns")

	var v string
	found, err := c.Get(context.Background(), "missing", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestCache_EmptyKey(t *testing.T) {
	c, _, _ := newTestCache(t, "ns")
	ctx := context.Background()
	var v string

	assert.ErrorIs(t, c.Set(ctx, "", "v", time.Minute), cache.ErrInvalidKey)

	_, err := c.Get(ctx, "  ", &v)
	assert.ErrorIs(t, err, cache.ErrInvalidKey)

	_, err = c.Delete(ctx, "")
	assert.ErrorIs(t, err, cache.ErrInvalidKey)

	_, err = c.Has(ctx, "")
	assert.ErrorIs(t, err, cache.ErrInvalidKey)
}

func TestCache_DeleteAndHas(t *testing.T) {
	c, _, _ := newTestCache(t, "ns")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	has, err := c.Has(ctx, "k")
	require.NoError(t, err)
	assert.True(t, has)

	removed, err := c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, removed, "second delete should report nothing removed")

	has, err = c.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCache_ClearOnlyTouchesNamespace(t *testing.T) {
	c, mr, _ := newTestCache(t, "ns")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))
	require.NoError(t, mr.Set("other:a", "keep"))
	require.NoError(t, mr.Set("plain", "keep"))

	c.Clear(ctx)

	assert.Equal(t, 0, c.Stats(ctx).KeyCount)
	assert.True(t, mr.Exists("other:a"))
	assert.True(t, mr.Exists("plain"))
}

func TestCache_KeysStripsNamespace(t *testing.T) {
	c, mr, _ := newTestCache(t, "ns")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user:1", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "user:2", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "overdue-tasks", []string{}, time.Minute))
	require.NoError(t, mr.Set("other:user:3", "x"))

	assert.ElementsMatch(t, []string{"user:1", "user:2"}, c.Keys(ctx, "user:*"))
	assert.ElementsMatch(t, []string{"user:1", "user:2", "overdue-tasks"}, c.Keys(ctx, ""))
	assert.Equal(t, 3, c.Stats(ctx).KeyCount)
}

func TestCache_DecodeFailureIsMiss(t *testing.T) {
	c, mr, buf := newTestCache(t, "ns")
	require.NoError(t, mr.Set("ns:k", "not-json"))

	var v []string
	found, err := c.Get(context.Background(), "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NotEmpty(t, buf.EntriesAtLevel(t, "ERROR"))
}

func TestCache_EncodeFailureIsLogged(t *testing.T) {
	c, mr, buf := newTestCache(t, "ns")

	err := c.Set(context.Background(), "k", make(chan int), time.Minute)
	require.NoError(t, err)
	assert.False(t, mr.Exists("ns:k"))
	assert.NotEmpty(t, buf.EntriesAtLevel(t, "ERROR"))
}

func TestCache_FailsOpenWhenBackendDown(t *testing.T) {
	c, mr, buf := newTestCache(t, "ns")
	ctx := context.Background()
	mr.Close()

	assert.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	var v string
	found, err := c.Get(ctx, "k", &v)
	assert.NoError(t, err)
	assert.False(t, found)

	removed, err := c.Delete(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, removed)

	has, err := c.Has(ctx, "k")
	assert.NoError(t, err)
	assert.False(t, has)

	assert.Empty(t, c.Keys(ctx, "*"))
	assert.Equal(t, 0, c.Stats(ctx).KeyCount)
	c.Clear(ctx)

	assert.NotEmpty(t, buf.EntriesAtLevel(t, "ERROR"))
}
