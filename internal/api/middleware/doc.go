// Package middleware contains the HTTP middleware for the admin API:
// request tracing, bearer authentication and role checks.
package middleware
