package processor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/stretchr/testify/require"
)

// fakeTasks implements TaskService with overridable function fields.
type fakeTasks struct {
	GetTaskFn        func(ctx context.Context, id string) (*domain.Task, error)
	UpdateStatusFn   func(ctx context.Context, id string, status domain.TaskStatus, p domain.Principal) (*domain.Task, error)
	FindTasksByIDsFn func(ctx context.Context, ids []string) ([]domain.Task, error)
	NotifyAssigneeFn func(ctx context.Context, task domain.Task) (bool, error)
}

func (f *fakeTasks) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return f.GetTaskFn(ctx, id)
}

func (f *fakeTasks) UpdateStatus(
	ctx context.Context,
	id string,
	status domain.TaskStatus,
	p domain.Principal,
) (*domain.Task, error) {
	return f.UpdateStatusFn(ctx, id, status, p)
}

func (f *fakeTasks) FindTasksByIDs(ctx context.Context, ids []string) ([]domain.Task, error) {
	return f.FindTasksByIDsFn(ctx, ids)
}

func (f *fakeTasks) NotifyAssignee(ctx context.Context, task domain.Task) (bool, error) {
	return f.NotifyAssigneeFn(ctx, task)
}

func newJob(t *testing.T, jobType string, payload any) *job.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &job.Job{ID: "job-1", Type: jobType, Payload: raw, Attempts: 1, MaxAttempts: 3}
}
