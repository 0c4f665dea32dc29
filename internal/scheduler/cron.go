package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/robfig/cron/v3"
)

// Cron runs named functions on cron schedules in UTC. Overlapping runs of
// the same entry are skipped and panics are recovered.
type Cron struct {
	cron    *cron.Cron
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewCron creates a stopped Cron.
func NewCron(log *slog.Logger) *Cron {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "cron")

	cl := cronLogger{logger: log}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cron{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Register schedules fn under name. spec accepts standard five-field
// expressions and descriptors such as @hourly.
func (c *Cron) Register(spec, name string, fn func(context.Context)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("cron entry %q already registered", name)
	}

	id, err := c.cron.AddFunc(spec, func() {
		log := c.logger.With("cron_entry", name)
		ctx := logger.WithLogger(c.ctx, log)
		start := time.Now()

		log.DebugContext(ctx, "cron entry started")
		fn(ctx)
		log.DebugContext(ctx, "cron entry finished", "duration_ms", time.Since(start).Milliseconds())
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for %s: %w", spec, name, err)
	}

	c.entries[name] = id
	c.logger.Info("cron entry registered", "cron_entry", name, "schedule", spec)
	return nil
}

// Next returns the next activation time of the named entry.
func (c *Cron) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return c.cron.Entry(id).Next, true
}

// Start begins running registered entries in the background.
func (c *Cron) Start() {
	c.cron.Start()
	c.logger.Info("cron scheduler started", "entries", len(c.cron.Entries()))
}

// Stop prevents new runs and waits for running entries to return. If ctx
// ends first, the context passed to running entries is cancelled.
func (c *Cron) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	defer c.cancel()

	select {
	case <-done.Done():
		c.logger.Info("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		c.logger.Warn("cron scheduler stop timed out", "error", ctx.Err())
		return ctx.Err()
	}
}

// cronLogger adapts slog to the robfig/cron logging interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
