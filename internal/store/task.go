package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
)

// TaskStore defines the persistence operations the background job subsystem
// needs for tasks.
// Version: 1.0
type TaskStore interface {
	// Create saves a new task.
	// Returns ErrTaskExists if a task with the same ID already exists.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id string) (*domain.Task, error)

	// FindByIDs retrieves the tasks matching ids. Unknown IDs are omitted.
	FindByIDs(ctx context.Context, ids []string) ([]domain.Task, error)

	// FindByStatus retrieves all tasks with the given status, newest first.
	FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)

	// FindOverdue retrieves pending tasks whose due date is before now.
	FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error)

	// UpdateStatus sets the status of a task and returns the updated row.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error)

	// RecordNotification marks the task's current due date as notified.
	// Returns false if a notification for the same task and due date was
	// already recorded.
	RecordNotification(ctx context.Context, task domain.Task, at time.Time) (bool, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
