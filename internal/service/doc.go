// Package service implements the application services that sit between the
// transport and job-processing layers and the stores.
//
// TaskService is the adapter the background job subsystem uses to read and
// mutate tasks: it enforces ownership through domain.Principal, keeps
// overdue notifications idempotent and enqueues follow-up work when tasks
// are created.
package service
