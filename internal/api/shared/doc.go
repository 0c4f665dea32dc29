// Package shared holds the request, response and context helpers used by the
// API handlers and middleware.
package shared
