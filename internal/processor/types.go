package processor

import (
	"context"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
)

// Job types handled by this package.
const (
	TypeProcessTask         = "process_task"
	TypeStatusUpdate        = "task-status-update"
	TypeOverdueNotification = "overdue-tasks-notification"
)

// ProcessTaskPayload is enqueued when a task is created.
type ProcessTaskPayload struct {
	TaskID string `json:"taskId"`
	UserID string `json:"userId,omitempty"`
}

// StatusUpdatePayload requests a status change for one task.
type StatusUpdatePayload struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// OverdueNotificationPayload lists the tasks found overdue by a scan.
type OverdueNotificationPayload struct {
	TaskIDs []string `json:"taskIds"`
}

// TaskGetter loads a single task.
type TaskGetter interface {
	GetTask(ctx context.Context, id string) (*domain.Task, error)
}

// StatusUpdater changes task status on behalf of a principal.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus, principal domain.Principal) (*domain.Task, error)
}

// OverdueNotifier loads tasks by id and notifies their owners.
type OverdueNotifier interface {
	FindTasksByIDs(ctx context.Context, ids []string) ([]domain.Task, error)
	NotifyAssignee(ctx context.Context, task domain.Task) (bool, error)
}

// TaskService is the full set of task operations the handlers need.
// *service.TaskService satisfies it.
type TaskService interface {
	TaskGetter
	StatusUpdater
	OverdueNotifier
}

// Routes returns the routing table for every handler in this package.
func Routes(tasks TaskService) map[string]job.Handler {
	return map[string]job.Handler{
		TypeProcessTask:         NewProcessTaskHandler(tasks),
		TypeStatusUpdate:        NewStatusUpdateHandler(tasks),
		TypeOverdueNotification: NewOverdueNotificationHandler(tasks),
	}
}
