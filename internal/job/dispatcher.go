package job

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
)

// Handler processes one job type.
//
// Handlers must be idempotent: a job may be delivered again after a crash,
// a lost lease or a retry. Returning an error schedules a retry; returning a
// Result with Success false records the failure without retrying.
type Handler interface {
	Handle(ctx context.Context, j *Job) (Result, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, j *Job) (Result, error)

// Handle calls f(ctx, j).
func (f HandlerFunc) Handle(ctx context.Context, j *Job) (Result, error) {
	return f(ctx, j)
}

// Dispatcher routes jobs to handlers by type.
type Dispatcher struct {
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher from an explicit routing table.
// The map is copied; later changes to it have no effect.
func NewDispatcher(logger *slog.Logger, handlers map[string]Handler) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	routes := make(map[string]Handler, len(handlers))
	for t, h := range handlers {
		if h != nil {
			routes[t] = h
		}
	}
	return &Dispatcher{
		handlers: routes,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Types returns the registered job types in sorted order.
func (d *Dispatcher) Types() []string {
	types := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch runs the handler registered for j.Type.
// Unknown types produce an unsuccessful Result and no error, so they are not
// retried. Handler panics are converted into errors.
func (d *Dispatcher) Dispatch(ctx context.Context, j *Job) (res Result, err error) {
	log := d.logger.With("job_id", j.ID, "job_type", j.Type)

	h, ok := d.handlers[j.Type]
	if !ok {
		log.WarnContext(ctx, "no handler registered for job type")
		return Rejected(fmt.Sprintf("unknown job type: %s", j.Type)), nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "job handler panicked", "panic", r, "stack", string(debug.Stack()))
			res = Result{}
			err = fmt.Errorf("handler for %s panicked: %v", j.Type, r)
		}
	}()

	return h.Handle(ctx, j)
}
