// Package scheduler finds overdue tasks on a schedule and hands them to the
// job queue as a single notification batch.
//
// The OverdueScanner never mutates tasks. It reads a cached id list when one
// is available, falls back to the task store, and enqueues one
// overdue-tasks-notification job per run. Cron drives the scanner on a
// robfig/cron schedule.
package scheduler
