package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/processor"
	"github.com/phrazzld/tasks-api/internal/store"
)

// Enqueuer submits background jobs. *job.Client satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts ...job.Option) (job.Handle, error)
}

// CreateTaskInput holds the fields a caller supplies for a new task.
type CreateTaskInput struct {
	Title   string
	DueDate *time.Time
}

// TaskService is the task store adapter used by job handlers, the scanner
// and the administrative API.
type TaskService struct {
	db       store.TxBeginner
	tasks    store.TaskStore
	queue    Enqueuer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewTaskService creates a TaskService.
// db may be nil, in which case writes run without a transaction.
// It returns an error if any other required dependency is nil.
func NewTaskService(
	db store.TxBeginner,
	tasks store.TaskStore,
	queue Enqueuer,
	notifier Notifier,
	logger *slog.Logger,
) (*TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if queue == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "queue cannot be nil"}
	}
	if notifier == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "notifier cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskService{
		db:       db,
		tasks:    tasks,
		queue:    queue,
		notifier: notifier,
		logger:   logger.With("component", "task_service"),
		now:      time.Now,
	}, nil
}

// GetTask retrieves a single task.
func (s *TaskService) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("get_task", "failed to load task", err)
	}
	return task, nil
}

// FindByStatus returns every task with the given status.
func (s *TaskService) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	tasks, err := s.tasks.FindByStatus(ctx, status)
	if err != nil {
		return nil, NewTaskServiceError("find_by_status", "failed to query tasks", err)
	}
	return tasks, nil
}

// FindOverdue returns pending tasks whose due date is before now.
func (s *TaskService) FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	tasks, err := s.tasks.FindOverdue(ctx, now)
	if err != nil {
		return nil, NewTaskServiceError("find_overdue", "failed to query overdue tasks", err)
	}
	return tasks, nil
}

// FindTasksByIDs returns the tasks that still exist among ids. Malformed and
// unknown IDs are silently omitted; store failures are returned.
func (s *TaskService) FindTasksByIDs(ctx context.Context, ids []string) ([]domain.Task, error) {
	if len(ids) == 0 {
		return []domain.Task{}, nil
	}
	tasks, err := s.tasks.FindByIDs(ctx, ids)
	if err != nil {
		return nil, NewTaskServiceError("find_by_ids", "failed to query tasks", err)
	}
	if len(tasks) < len(ids) {
		s.logger.DebugContext(ctx, "some requested tasks were not found",
			"requested", len(ids),
			"found", len(tasks))
	}
	return tasks, nil
}

// UpdateStatus changes a task's status on behalf of principal.
// Setting the status a task already has is a no-op that returns the task.
func (s *TaskService) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.TaskStatus,
	principal domain.Principal,
) (*domain.Task, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("update_status", "failed to load task", err)
	}

	if !principal.CanModify(task.OwnerID) {
		s.logger.WarnContext(ctx, "status update denied",
			"task_id", id,
			"principal_kind", principal.Kind,
			"principal_id", principal.UserID)
		return nil, ErrForbidden
	}

	if task.Status == status {
		s.logger.DebugContext(ctx, "task already has requested status", "task_id", id, "status", status)
		return task, nil
	}

	updated, err := s.tasks.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, NewTaskServiceError("update_status", "failed to update task status", err)
	}

	s.logger.InfoContext(ctx, "task status updated",
		"task_id", id,
		"old_status", task.Status,
		"new_status", status,
		"principal_kind", principal.Kind)
	return updated, nil
}

// NotifyAssignee sends an overdue notification to the task owner once per
// due date. It reports false when the owner was already notified.
func (s *TaskService) NotifyAssignee(ctx context.Context, task domain.Task) (bool, error) {
	if task.DueDate == nil {
		return false, NewTaskServiceError("notify_assignee", "task has no due date", domain.ErrValidation)
	}

	notified := false
	err := s.inTransaction(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		recorded, err := tasks.RecordNotification(ctx, task, s.now().UTC())
		if err != nil {
			return err
		}
		if !recorded {
			return nil
		}

		// Delivery failure rolls back the marker so a retry can notify again
		if err := s.notifier.Notify(ctx, Notification{
			TaskID:  task.ID,
			OwnerID: task.OwnerID,
			Title:   task.Title,
			DueDate: *task.DueDate,
		}); err != nil {
			return fmt.Errorf("notifier: %w", err)
		}
		notified = true
		return nil
	})
	if err != nil {
		return false, NewTaskServiceError("notify_assignee", "failed to notify task owner", err)
	}

	if !notified {
		s.logger.DebugContext(ctx, "owner already notified for this due date", "task_id", task.ID)
	}
	return notified, nil
}

// Create persists a new task owned by principal and enqueues its
// process_task job. Enqueue failures are logged and do not fail the call.
func (s *TaskService) Create(
	ctx context.Context,
	principal domain.Principal,
	input CreateTaskInput,
) (*domain.Task, error) {
	if principal.IsSystem() || principal.UserID == "" {
		return nil, ErrForbidden
	}

	task, err := domain.NewTask(principal.UserID, input.Title, input.DueDate)
	if err != nil {
		return nil, NewTaskServiceError("create_task", "invalid task",
			fmt.Errorf("%w: %v", domain.ErrValidation, err))
	}

	err = s.inTransaction(ctx, func(ctx context.Context, tasks store.TaskStore) error {
		return tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	h, err := s.queue.Enqueue(ctx, processor.TypeProcessTask,
		processor.ProcessTaskPayload{TaskID: task.ID, UserID: task.OwnerID},
		job.WithJobID("task-"+task.ID),
		job.WithAttempts(job.DefaultMaxAttempts),
		job.RemoveOnFail(true),
	)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to enqueue task processing job",
			"task_id", task.ID,
			"error", err)
	} else {
		s.logger.InfoContext(ctx, "task created", "task_id", task.ID, "job_id", h.ID)
	}

	return task, nil
}

func (s *TaskService) inTransaction(
	ctx context.Context,
	fn func(ctx context.Context, tasks store.TaskStore) error,
) error {
	if s.db == nil {
		return fn(ctx, s.tasks)
	}
	return store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.tasks.WithTx(tx))
	})
}

