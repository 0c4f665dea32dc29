package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/tasks-api/internal/cache"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/phrazzld/tasks-api/internal/scheduler"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/redis/go-redis/v9"
)

// backend is the set of connected components a command operates on.
type backend struct {
	db      *sql.DB
	jobs    job.Store
	client  *job.Client
	scanner *scheduler.OverdueScanner
	closers []func() error
}

func (b *backend) close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	b.closers = nil
	return errors.Join(errs...)
}

// openFunc connects a backend for cfg.
type openFunc func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error)

// env carries configuration and a lazily opened backend to every command.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	open   openFunc
	b      *backend
}

func newEnv(cfg *config.Config, logger *slog.Logger, open openFunc) *env {
	return &env{cfg: cfg, logger: logger, open: open}
}

// backend opens the backend on first use and reuses it afterwards.
func (e *env) backend(ctx context.Context) (*backend, error) {
	if e.b != nil {
		return e.b, nil
	}
	b, err := e.open(ctx, e.cfg, e.logger)
	if err != nil {
		return nil, err
	}
	e.b = b
	return b, nil
}

func (e *env) close() {
	if e.b == nil {
		return
	}
	if err := e.b.close(); err != nil {
		e.logger.Warn("error closing connections", "error", err)
	}
	e.b = nil
}

// openBackend connects to Postgres and Redis and builds the queue client and
// overdue scanner the same way the server does.
func openBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.Queue.Backend != "postgres" {
		return nil, fmt.Errorf("jobctl needs the postgres queue backend, got %q", cfg.Queue.Backend)
	}

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	b := &backend{db: db, closers: []func() error{db.Close}}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = b.close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b.closers = append(b.closers, rdb.Close)

	b.jobs = postgres.NewJobStore(db, logger)
	b.client = job.NewClient(b.jobs, cfg.Queue.Name, logger)

	tasks, err := service.NewTaskService(
		db,
		postgres.NewPostgresTaskStore(db),
		b.client,
		service.NewLogNotifier(logger),
		logger,
	)
	if err != nil {
		_ = b.close()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	b.scanner = scheduler.NewOverdueScanner(
		tasks,
		cache.New(rdb, cfg.Cache.Namespace, logger),
		b.client,
		cfg.Cache.OverdueTTL(),
		logger,
	)
	return b, nil
}
