// Package store defines the persistence interfaces and shared store errors
// used by the task and job subsystems. Concrete implementations live in
// internal/platform/postgres.
package store
