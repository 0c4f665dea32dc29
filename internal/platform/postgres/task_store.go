package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

const taskColumns = `id, title, status, due_date, user_id, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL
type PostgresTaskStore struct {
	db store.DBTX
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{
		db: db,
	}
}

// WithTx returns a store that runs its queries inside tx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db: tx,
	}
}

// Create persists a new task
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Status,
		nullTime(task.DueDate),
		task.OwnerID,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return store.ErrTaskExists
		}
		log.Error("failed to insert task", "task_id", task.ID, "error", err)
		return fmt.Errorf("failed to insert task: %w", MapError(err))
	}

	return nil
}

// GetByID retrieves a task by its ID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrTaskNotFound
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", MapError(err))
	}

	return task, nil
}

// FindByIDs retrieves the tasks with the given IDs. IDs that are not valid
// UUIDs or do not exist are omitted from the result.
func (s *PostgresTaskStore) FindByIDs(ctx context.Context, ids []string) ([]domain.Task, error) {
	args := make([]any, 0, len(ids))
	placeholders := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	if len(args) == 0 {
		return []domain.Task{}, nil
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id IN (` +
		strings.Join(placeholders, ", ") + `) ORDER BY due_date NULLS LAST, created_at`

	return s.queryTasks(ctx, query, args...)
}

// FindByStatus retrieves all tasks with the given status, newest first
func (s *PostgresTaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE status = $1 ORDER BY created_at DESC`
	return s.queryTasks(ctx, query, status)
}

// FindOverdue retrieves pending tasks whose due date is before now
func (s *PostgresTaskStore) FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = $1 AND due_date IS NOT NULL AND due_date < $2
		ORDER BY due_date ASC
	`
	return s.queryTasks(ctx, query, domain.TaskStatusPending, now.UTC())
}

// UpdateStatus sets the status of a task and returns the updated row
func (s *PostgresTaskStore) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	log := logger.FromContext(ctx)

	if !status.Valid() {
		return nil, fmt.Errorf("%w: %v", store.ErrInvalidEntity, domain.ErrInvalidTaskStatus)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrTaskNotFound
	}

	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query, status, time.Now().UTC(), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task status", "task_id", id, "status", status, "error", err)
		return nil, fmt.Errorf("failed to update task status: %w", MapError(err))
	}

	return task, nil
}

// RecordNotification stores a notification marker for the task's due date.
// It returns false when the marker already existed.
func (s *PostgresTaskStore) RecordNotification(ctx context.Context, task domain.Task, at time.Time) (bool, error) {
	if task.DueDate == nil {
		return false, fmt.Errorf("%w: task %s has no due date", store.ErrInvalidEntity, task.ID)
	}

	query := `
		INSERT INTO task_notifications (task_id, due_date, notified_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (task_id, due_date) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, task.ID, task.DueDate.UTC(), at.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to record notification: %w", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", MapError(err))
	}
	defer func() {
		_ = rows.Close()
	}()

	tasks := []domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task    domain.Task
		status  string
		dueDate sql.NullTime
	)
	if err := row.Scan(
		&task.ID,
		&task.Title,
		&status,
		&dueDate,
		&task.OwnerID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	if dueDate.Valid {
		d := dueDate.Time.UTC()
		task.DueDate = &d
	}
	return &task, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
