package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overdueTask(id string, status domain.TaskStatus) domain.Task {
	due := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	return domain.Task{ID: id, Status: status, OwnerID: "owner-" + id, DueDate: &due}
}

func TestOverdueNotificationHandler_NotifiesEachTask(t *testing.T) {
	t.Parallel()

	var notified []string
	tasks := &fakeTasks{
		FindTasksByIDsFn: func(ctx context.Context, ids []string) ([]domain.Task, error) {
			assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
			return []domain.Task{
				overdueTask("a", domain.TaskStatusPending),
				overdueTask("b", domain.TaskStatusCompleted),
				overdueTask("c", domain.TaskStatusInProgress),
			}, nil
		},
		NotifyAssigneeFn: func(ctx context.Context, task domain.Task) (bool, error) {
			notified = append(notified, task.ID)
			return task.ID == "a", nil
		},
	}

	res, err := NewOverdueNotificationHandler(tasks).Handle(context.Background(),
		newJob(t, TypeOverdueNotification, OverdueNotificationPayload{TaskIDs: []string{"a", "b", "c", "d"}}))
	require.NoError(t, err)
	require.True(t, res.Success)

	out, ok := res.Data.(OverdueNotificationResult)
	require.True(t, ok)
	assert.Equal(t, 2, out.Processed)
	assert.Equal(t, 1, out.Notified)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, []string{"a", "c"}, notified)
	assert.Equal(t, []NotificationOutcome{
		{TaskID: "a", Notified: true},
		{TaskID: "b", Skipped: "completed"},
		{TaskID: "c", Skipped: "already notified"},
	}, out.Results)
}

func TestOverdueNotificationHandler_IsolatesFailures(t *testing.T) {
	t.Parallel()

	tasks := &fakeTasks{
		FindTasksByIDsFn: func(context.Context, []string) ([]domain.Task, error) {
			return []domain.Task{
				overdueTask("a", domain.TaskStatusPending),
				overdueTask("b", domain.TaskStatusPending),
			}, nil
		},
		NotifyAssigneeFn: func(ctx context.Context, task domain.Task) (bool, error) {
			if task.ID == "a" {
				return false, errors.New("mail relay down")
			}
			return true, nil
		},
	}

	res, err := NewOverdueNotificationHandler(tasks).Handle(context.Background(),
		newJob(t, TypeOverdueNotification, OverdueNotificationPayload{TaskIDs: []string{"a", "b"}}))
	require.NoError(t, err)
	require.True(t, res.Success)

	out := res.Data.(OverdueNotificationResult)
	assert.Equal(t, 2, out.Processed, "failed attempts still count as processed")
	assert.Equal(t, 1, out.Notified)
	assert.Equal(t, "Processed 2 of 2 overdue tasks", out.Message)
	require.Len(t, out.Results, 2)
	assert.Equal(t, "mail relay down", out.Results[0].Error)
	assert.False(t, out.Results[0].Notified)
	assert.True(t, out.Results[1].Notified)
}

func TestOverdueNotificationHandler_SingleFailureCountsAsProcessed(t *testing.T) {
	t.Parallel()

	tasks := &fakeTasks{
		FindTasksByIDsFn: func(context.Context, []string) ([]domain.Task, error) {
			return []domain.Task{overdueTask("1", domain.TaskStatusPending)}, nil
		},
		NotifyAssigneeFn: func(context.Context, domain.Task) (bool, error) {
			return false, errors.New("boom")
		},
	}

	res, err := NewOverdueNotificationHandler(tasks).Handle(context.Background(),
		newJob(t, TypeOverdueNotification, OverdueNotificationPayload{TaskIDs: []string{"1"}}))
	require.NoError(t, err)
	require.True(t, res.Success)

	out := res.Data.(OverdueNotificationResult)
	assert.Equal(t, 1, out.Processed)
	assert.Zero(t, out.Notified)
	assert.Equal(t, []NotificationOutcome{{TaskID: "1", Error: "boom"}}, out.Results)
}

func TestOverdueNotificationHandler_NothingToNotify(t *testing.T) {
	t.Parallel()

	tasks := &fakeTasks{
		FindTasksByIDsFn: func(context.Context, []string) ([]domain.Task, error) {
			return []domain.Task{}, nil
		},
	}

	res, err := NewOverdueNotificationHandler(tasks).Handle(context.Background(),
		newJob(t, TypeOverdueNotification, OverdueNotificationPayload{TaskIDs: []string{"gone"}}))
	require.NoError(t, err)
	require.True(t, res.Success)

	out := res.Data.(OverdueNotificationResult)
	assert.Zero(t, out.Processed)
	assert.Equal(t, "No tasks to notify", out.Message)
}

func TestOverdueNotificationHandler_EmptyIDsRejected(t *testing.T) {
	t.Parallel()

	res, err := NewOverdueNotificationHandler(&fakeTasks{}).Handle(context.Background(),
		newJob(t, TypeOverdueNotification, OverdueNotificationPayload{}))
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "no taskIds provided", res.Error)
}

func TestOverdueNotificationHandler_LoadErrorIsRetried(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("timeout")
	tasks := &fakeTasks{
		FindTasksByIDsFn: func(context.Context, []string) ([]domain.Task, error) {
			return nil, dbErr
		},
	}

	_, err := NewOverdueNotificationHandler(tasks).Handle(context.Background(),
		newJob(t, TypeOverdueNotification, OverdueNotificationPayload{TaskIDs: []string{"a"}}))
	assert.ErrorIs(t, err, dbErr)
}
