package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasks-api/internal/cache"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/phrazzld/tasks-api/internal/processor"
	"github.com/phrazzld/tasks-api/internal/scheduler"
	"github.com/phrazzld/tasks-api/internal/service"
	"github.com/phrazzld/tasks-api/internal/service/auth"
	"github.com/redis/go-redis/v9"
)

// overdueScanEntry names the cron entry that runs the overdue scanner.
const overdueScanEntry = "overdue-scan"

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  redis.UniversalClient

	jwtService  auth.JWTService
	cache       *cache.Cache
	jobStore    job.Store
	jobClient   *job.Client
	taskService *service.TaskService
	runner      *job.Runner
	scanner     *scheduler.OverdueScanner
	cron        *scheduler.Cron
}

// newApplication wires every component. Nothing is started until Run.
func newApplication(
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
	rdb redis.UniversalClient,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
		redis:  rdb,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.cache = cache.New(rdb, cfg.Cache.Namespace, logger)

	switch cfg.Queue.Backend {
	case "memory":
		logger.Warn("Using in-memory job store; queued jobs are lost on restart")
		app.jobStore = job.NewMemoryStore()
	default:
		app.jobStore = postgres.NewJobStore(db, logger)
	}
	app.jobClient = job.NewClient(app.jobStore, cfg.Queue.Name, logger)

	app.taskService, err = service.NewTaskService(
		db,
		postgres.NewPostgresTaskStore(db),
		app.jobClient,
		service.NewLogNotifier(logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	dispatcher := job.NewDispatcher(logger, processor.Routes(app.taskService))
	app.runner = job.NewRunner(app.jobStore, dispatcher, job.RunnerConfig{
		Queue:                cfg.Queue.Name,
		WorkerCount:          cfg.Queue.WorkerCount,
		PollInterval:         cfg.Queue.PollInterval(),
		Lease:                cfg.Queue.Lease(),
		StalledCheckInterval: cfg.Queue.StalledCheckInterval(),
	}, logger)

	app.scanner = scheduler.NewOverdueScanner(
		app.taskService,
		app.cache,
		app.jobClient,
		cfg.Cache.OverdueTTL(),
		logger,
	)

	app.cron = scheduler.NewCron(logger)
	if cfg.Scheduler.Enabled {
		err = app.cron.Register(cfg.Scheduler.OverdueSpec, overdueScanEntry, app.runOverdueScan)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule overdue scan: %w", err)
		}
	}

	logger.Info("Application initialized successfully",
		"queue", cfg.Queue.Name,
		"handlers", dispatcher.Types())
	return app, nil
}

// runOverdueScan is the cron callback for the overdue scanner.
func (app *application) runOverdueScan(ctx context.Context) {
	if _, err := app.scanner.CheckOverdueTasks(ctx); err != nil {
		app.logger.ErrorContext(ctx, "scheduled overdue scan failed", "error", err)
	}
}

// Run starts the workers, the scheduler and the HTTP server, and blocks
// until ctx is cancelled or the server fails.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if err := app.runner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	if app.config.Scheduler.Enabled {
		app.cron.Start()
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if app.cron != nil {
		if err := app.cron.Stop(ctx); err != nil {
			app.logger.Error("Error stopping scheduler", "error", err)
		}
	}

	if app.runner != nil {
		app.runner.Stop()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
