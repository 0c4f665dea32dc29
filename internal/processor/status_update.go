package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// StatusUpdateResult is the Data of a successful status update.
type StatusUpdateResult struct {
	TaskID    string            `json:"taskId"`
	NewStatus domain.TaskStatus `json:"newStatus"`
}

// StatusUpdateHandler applies queued status changes as the system principal.
type StatusUpdateHandler struct {
	tasks StatusUpdater
}

// NewStatusUpdateHandler creates a StatusUpdateHandler.
func NewStatusUpdateHandler(tasks StatusUpdater) *StatusUpdateHandler {
	return &StatusUpdateHandler{tasks: tasks}
}

// Handle implements job.Handler.
func (h *StatusUpdateHandler) Handle(ctx context.Context, j *job.Job) (job.Result, error) {
	log := logger.FromContext(ctx)

	var p StatusUpdatePayload
	if err := j.DecodePayload(&p); err != nil {
		log.WarnContext(ctx, "invalid status update payload", "error", err)
		return job.Rejected("invalid payload: " + err.Error()), nil
	}
	if p.TaskID == "" || p.Status == "" {
		log.WarnContext(ctx, "status update missing fields", "task_id", p.TaskID, "status", p.Status)
		return job.Rejected("missing taskId or status"), nil
	}

	status := domain.TaskStatus(p.Status)
	if !status.Valid() {
		log.WarnContext(ctx, "status update with unknown status", "task_id", p.TaskID, "status", p.Status)
		return job.Rejected(fmt.Sprintf("invalid status: %s", p.Status)), nil
	}

	task, err := h.tasks.UpdateStatus(ctx, p.TaskID, status, domain.SystemPrincipal())
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.WarnContext(ctx, "status update for missing task", "task_id", p.TaskID)
			return job.Rejected(fmt.Sprintf("task not found: %s", p.TaskID)), nil
		}
		return job.Result{}, fmt.Errorf("update status of task %s: %w", p.TaskID, err)
	}

	log.InfoContext(ctx, "task status updated by job", "task_id", task.ID, "status", task.Status)
	return job.Succeeded(StatusUpdateResult{TaskID: task.ID, NewStatus: task.Status}), nil
}
