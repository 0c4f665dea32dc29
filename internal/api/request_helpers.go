package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/job"
)

// maxListLimit caps the limit query parameter of list endpoints.
const maxListLimit = 500

// getPathParam returns a non-empty path parameter.
func getPathParam(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(chi.URLParam(r, name))
	if v == "" {
		return "", domain.NewValidationError(name, "is required", domain.ErrInvalidID)
	}
	return v, nil
}

// getQueue returns the queue query parameter or fallback.
func getQueue(r *http.Request, fallback string) string {
	if q := strings.TrimSpace(r.URL.Query().Get("queue")); q != "" {
		return q
	}
	return fallback
}

// getLimit parses the limit query parameter. Missing values use
// job.DefaultListLimit; values above maxListLimit are clamped.
func getLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return job.DefaultListLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, domain.NewValidationError("limit", "must be a positive integer", domain.ErrValidation)
	}
	return min(n, maxListLimit), nil
}
