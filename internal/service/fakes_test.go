package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/store"
)

type fakeTaskStore struct {
	CreateFn             func(ctx context.Context, task *domain.Task) error
	GetByIDFn            func(ctx context.Context, id string) (*domain.Task, error)
	FindByIDsFn          func(ctx context.Context, ids []string) ([]domain.Task, error)
	FindByStatusFn       func(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error)
	FindOverdueFn        func(ctx context.Context, now time.Time) ([]domain.Task, error)
	UpdateStatusFn       func(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error)
	RecordNotificationFn func(ctx context.Context, task domain.Task, at time.Time) (bool, error)

	txCount int
}

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	return f.CreateFn(ctx, task)
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	return f.GetByIDFn(ctx, id)
}

func (f *fakeTaskStore) FindByIDs(ctx context.Context, ids []string) ([]domain.Task, error) {
	return f.FindByIDsFn(ctx, ids)
}

func (f *fakeTaskStore) FindByStatus(ctx context.Context, status domain.TaskStatus) ([]domain.Task, error) {
	return f.FindByStatusFn(ctx, status)
}

func (f *fakeTaskStore) FindOverdue(ctx context.Context, now time.Time) ([]domain.Task, error) {
	return f.FindOverdueFn(ctx, now)
}

func (f *fakeTaskStore) UpdateStatus(ctx context.Context, id string, status domain.TaskStatus) (*domain.Task, error) {
	return f.UpdateStatusFn(ctx, id, status)
}

func (f *fakeTaskStore) RecordNotification(ctx context.Context, task domain.Task, at time.Time) (bool, error) {
	return f.RecordNotificationFn(ctx, task, at)
}

func (f *fakeTaskStore) WithTx(*sql.Tx) store.TaskStore {
	f.txCount++
	return f
}

type enqueueCall struct {
	Type    string
	Payload any
	Opts    []job.Option
}

type fakeEnqueuer struct {
	calls []enqueueCall
	err   error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, jobType string, payload any, opts ...job.Option) (job.Handle, error) {
	f.calls = append(f.calls, enqueueCall{Type: jobType, Payload: payload, Opts: opts})
	if f.err != nil {
		return job.Handle{}, f.err
	}
	return job.Handle{ID: "job-1", Created: true}, nil
}

type fakeNotifier struct {
	sent []Notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, n Notification) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
