package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: 8080, LogLevel: "debug"},
		Database: config.DatabaseConfig{URL: "postgres://localhost/tasks", MaxOpenConns: 1},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-that-is-at-least-32-characters",
			TokenLifetimeMinutes: 5,
		},
		Redis: config.RedisConfig{Addr: "localhost:6379"},
		Cache: config.CacheConfig{Namespace: "app_cache", OverdueTTLSeconds: 600},
		Queue: config.QueueConfig{
			Name:                        "task-processing",
			Backend:                     "memory",
			WorkerCount:                 1,
			PollIntervalMS:              10,
			LeaseSeconds:                30,
			StalledCheckIntervalSeconds: 30,
		},
		Scheduler: config.SchedulerConfig{Enabled: true, OverdueSpec: "@hourly"},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) (*application, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	app, err := newApplication(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), db, rdb)
	require.NoError(t, err)
	return app, mock
}

func TestNewApplication_WiresComponents(t *testing.T) {
	app, _ := newTestApp(t, testConfig())

	assert.IsType(t, &job.MemoryStore{}, app.jobStore)
	assert.Equal(t, "task-processing", app.jobClient.Queue())

	next, ok := app.cron.Next(overdueScanEntry)
	assert.True(t, ok, "overdue scan is scheduled")
	assert.True(t, next.IsZero(), "cron is not started before Run")
}

func TestNewApplication_RejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Scheduler.OverdueSpec = "every now and then"

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = newApplication(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), db,
		redis.NewClient(&redis.Options{Addr: "localhost:0"}))
	assert.ErrorContains(t, err, "failed to schedule overdue scan")
}

func TestRouter_Health(t *testing.T) {
	app, mock := newTestApp(t, testConfig())
	router := app.setupRouter()

	mock.ExpectPing()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	mock.ExpectPing().WillReturnError(assert.AnError)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouter_AdminRoutesRequireAdminToken(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	router := app.setupRouter()
	ctx := context.Background()

	adminToken, err := app.jwtService.GenerateToken(ctx, "ops", domain.RoleAdmin)
	require.NoError(t, err)
	userToken, err := app.jwtService.GenerateToken(ctx, "alice", domain.RoleUser)
	require.NoError(t, err)

	enqueue := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/admin/jobs",
			strings.NewReader(`{"type":"task-status-update","payload":{"taskId":"t1","status":"completed"}}`))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}

	assert.Equal(t, http.StatusUnauthorized, enqueue("").Code)
	assert.Equal(t, http.StatusForbidden, enqueue(userToken).Code)

	rr := enqueue(adminToken)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"created":true`)

	counts, err := app.jobStore.Counts(ctx, "task-processing")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[job.StateWaiting])
}
