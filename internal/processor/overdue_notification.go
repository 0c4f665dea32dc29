package processor

import (
	"context"
	"fmt"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
)

// NotificationOutcome reports what happened for one task in a batch.
type NotificationOutcome struct {
	TaskID   string `json:"taskId"`
	Notified bool   `json:"notified"`
	Skipped  string `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

// OverdueNotificationResult is the Data of an overdue notification batch.
// Processed counts every task handed to the notifier, failures included.
type OverdueNotificationResult struct {
	Processed int                   `json:"processed"`
	Notified  int                   `json:"notified"`
	Skipped   int                   `json:"skipped"`
	Results   []NotificationOutcome `json:"results"`
	Message   string                `json:"message,omitempty"`
}

// OverdueNotificationHandler notifies the owners of a batch of overdue tasks.
type OverdueNotificationHandler struct {
	tasks OverdueNotifier
}

// NewOverdueNotificationHandler creates an OverdueNotificationHandler.
func NewOverdueNotificationHandler(tasks OverdueNotifier) *OverdueNotificationHandler {
	return &OverdueNotificationHandler{tasks: tasks}
}

// Handle implements job.Handler. Each task is notified independently so one
// failure does not block the rest of the batch.
func (h *OverdueNotificationHandler) Handle(ctx context.Context, j *job.Job) (job.Result, error) {
	log := logger.FromContext(ctx)

	var p OverdueNotificationPayload
	if err := j.DecodePayload(&p); err != nil {
		log.WarnContext(ctx, "invalid overdue notification payload", "error", err)
		return job.Rejected("invalid payload: " + err.Error()), nil
	}
	if len(p.TaskIDs) == 0 {
		log.WarnContext(ctx, "overdue notification without task ids")
		return job.Rejected("no taskIds provided"), nil
	}

	tasks, err := h.tasks.FindTasksByIDs(ctx, p.TaskIDs)
	if err != nil {
		return job.Result{}, fmt.Errorf("load overdue tasks: %w", err)
	}
	if len(tasks) == 0 {
		log.InfoContext(ctx, "no overdue tasks left to notify", "requested", len(p.TaskIDs))
		return job.Succeeded(OverdueNotificationResult{
			Results: []NotificationOutcome{},
			Message: "No tasks to notify",
		}), nil
	}

	out := OverdueNotificationResult{Results: make([]NotificationOutcome, 0, len(tasks))}
	for _, task := range tasks {
		// Ids may come from a cached scan, so completed tasks are skipped
		if task.Status == domain.TaskStatusCompleted {
			out.Skipped++
			out.Results = append(out.Results, NotificationOutcome{TaskID: task.ID, Skipped: "completed"})
			continue
		}

		out.Processed++
		notified, err := h.tasks.NotifyAssignee(ctx, task)
		if err != nil {
			log.ErrorContext(ctx, "failed to notify task owner", "task_id", task.ID, "error", err)
			out.Results = append(out.Results, NotificationOutcome{TaskID: task.ID, Error: err.Error()})
			continue
		}
		outcome := NotificationOutcome{TaskID: task.ID, Notified: notified}
		if notified {
			out.Notified++
		} else {
			outcome.Skipped = "already notified"
		}
		out.Results = append(out.Results, outcome)
	}

	out.Message = fmt.Sprintf("Processed %d of %d overdue tasks", out.Processed, len(tasks))
	log.InfoContext(ctx, "overdue notifications processed",
		"processed", out.Processed,
		"notified", out.Notified,
		"skipped", out.Skipped,
		"requested", len(p.TaskIDs))
	return job.Succeeded(out), nil
}
