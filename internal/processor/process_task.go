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

// ProcessTaskResult is the Data of a processed task.
type ProcessTaskResult struct {
	TaskID string            `json:"taskId"`
	Status domain.TaskStatus `json:"status"`
}

// ProcessTaskHandler acknowledges newly created tasks.
type ProcessTaskHandler struct {
	tasks TaskGetter
}

// NewProcessTaskHandler creates a ProcessTaskHandler.
func NewProcessTaskHandler(tasks TaskGetter) *ProcessTaskHandler {
	return &ProcessTaskHandler{tasks: tasks}
}

// Handle implements job.Handler.
func (h *ProcessTaskHandler) Handle(ctx context.Context, j *job.Job) (job.Result, error) {
	log := logger.FromContext(ctx)

	var p ProcessTaskPayload
	if err := j.DecodePayload(&p); err != nil {
		log.WarnContext(ctx, "invalid process task payload", "error", err)
		return job.Rejected("invalid payload: " + err.Error()), nil
	}
	if p.TaskID == "" {
		return job.Rejected("missing taskId"), nil
	}

	task, err := h.tasks.GetTask(ctx, p.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			log.WarnContext(ctx, "created task no longer exists", "task_id", p.TaskID)
			return job.Rejected(fmt.Sprintf("task not found: %s", p.TaskID)), nil
		}
		return job.Result{}, fmt.Errorf("load task %s: %w", p.TaskID, err)
	}

	log.InfoContext(ctx, "task processed", "task_id", task.ID, "user_id", task.OwnerID)
	return job.Succeeded(ProcessTaskResult{TaskID: task.ID, Status: task.Status}), nil
}
