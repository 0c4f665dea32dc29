package service

import (
	"context"
	"log/slog"
	"time"
)

// Notification describes an overdue reminder for a task owner.
type Notification struct {
	TaskID  string
	OwnerID string
	Title   string
	DueDate time.Time
}

// Notifier delivers notifications to task owners.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier records notifications in the structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, note Notification) error {
	n.logger.InfoContext(ctx, "task overdue notification",
		"task_id", note.TaskID,
		"user_id", note.OwnerID,
		"title", note.Title,
		"due_date", note.DueDate)
	return nil
}
