// Package main implements jobctl, the operator CLI for the tasks job queue.
// It enqueues arbitrary jobs, inspects and retries failed jobs, runs the
// overdue scanner once, applies migrations and mints admin API tokens.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "jobctl: failed to load config:", err)
		os.Exit(1)
	}

	// stdout carries command output, so logs go to stderr.
	l := logger.SetupWithWriter(cfg.Server, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	env := newEnv(cfg, l, openBackend)

	err = newRootCmd(env).ExecuteContext(ctx)
	env.close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
