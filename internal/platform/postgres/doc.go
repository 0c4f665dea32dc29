// Package postgres provides PostgreSQL implementations of the task store
// (store.TaskStore) and the durable job queue (job.Store), together with the
// embedded goose migrations that create their tables.
package postgres
