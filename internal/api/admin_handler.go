package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/cache"
	"github.com/phrazzld/tasks-api/internal/job"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/scheduler"
)

// JobInspector reads and repairs queued jobs. job.Store satisfies it.
type JobInspector interface {
	Get(ctx context.Context, id string) (*job.Job, error)
	ListFailed(ctx context.Context, queue string, limit int) ([]job.Job, error)
	Retry(ctx context.Context, id string) error
	Counts(ctx context.Context, queue string) (map[job.State]int, error)
}

// Enqueuer submits background jobs. *job.Client satisfies it.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload any, opts ...job.Option) (job.Handle, error)
	Queue() string
}

// OverdueChecker runs one overdue scan.
type OverdueChecker interface {
	CheckOverdueTasks(ctx context.Context) (scheduler.ScanResult, error)
}

// CacheAdmin exposes cache maintenance operations. *cache.Cache satisfies it.
type CacheAdmin interface {
	Namespace() string
	Stats(ctx context.Context) cache.Stats
	Clear(ctx context.Context)
}

// AdminHandler serves the /api/admin routes.
type AdminHandler struct {
	jobs    JobInspector
	queue   Enqueuer
	scanner OverdueChecker
	cache   CacheAdmin
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	jobs JobInspector,
	queue Enqueuer,
	scanner OverdueChecker,
	cache CacheAdmin,
	logger *slog.Logger,
) *AdminHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AdminHandler")
	}
	return &AdminHandler{
		jobs:    jobs,
		queue:   queue,
		scanner: scanner,
		cache:   cache,
		logger:  logger.With(slog.String("component", "admin_handler")),
	}
}

// Routes registers the admin endpoints on r. Callers are expected to apply
// authentication and RequireAdmin first.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Post("/jobs", h.EnqueueJob)
	r.Get("/jobs/failed", h.ListFailedJobs)
	r.Get("/jobs/counts", h.QueueCounts)
	r.Get("/jobs/{id}", h.GetJob)
	r.Post("/jobs/{id}/retry", h.RetryJob)
	r.Post("/overdue-check", h.TriggerOverdueCheck)
	r.Get("/cache/stats", h.CacheStats)
	r.Delete("/cache", h.ClearCache)
}

// EnqueueJob handles POST /api/admin/jobs.
func (h *AdminHandler) EnqueueJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req EnqueueJobRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		msg := "Invalid request format"
		if errors.Is(err, shared.ErrEmptyBody) {
			msg = "Request body is required"
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, msg, err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	handle, err := h.queue.Enqueue(r.Context(), req.Type, req.Payload, req.Options.jobOptions()...)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to enqueue job")
		return
	}

	log.Info("job submitted via admin API",
		"job_id", handle.ID,
		"job_type", req.Type,
		"created", handle.Created)
	shared.RespondWithJSON(w, r, http.StatusAccepted, handle)
}

// GetJob handles GET /api/admin/jobs/{id}.
func (h *AdminHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	j, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load job")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(j))
}

// ListFailedJobs handles GET /api/admin/jobs/failed.
func (h *AdminHandler) ListFailedJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := getLimit(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	queue := getQueue(r, h.queue.Queue())

	failed, err := h.jobs.ListFailed(r.Context(), queue, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list failed jobs")
		return
	}

	resp := FailedJobsResponse{Queue: queue, Jobs: make([]JobResponse, 0, len(failed))}
	for i := range failed {
		resp.Jobs = append(resp.Jobs, jobToResponse(&failed[i]))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// RetryJob handles POST /api/admin/jobs/{id}/retry.
func (h *AdminHandler) RetryJob(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	id, err := getPathParam(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.jobs.Retry(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to retry job")
		return
	}

	log.Info("failed job requeued via admin API", "job_id", id)
	shared.RespondWithJSON(w, r, http.StatusAccepted, RetryJobResponse{JobID: id, State: job.StateWaiting})
}

// QueueCounts handles GET /api/admin/jobs/counts.
func (h *AdminHandler) QueueCounts(w http.ResponseWriter, r *http.Request) {
	queue := getQueue(r, h.queue.Queue())

	counts, err := h.jobs.Counts(r.Context(), queue)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to count jobs")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, QueueCountsResponse{Queue: queue, Counts: counts})
}

// TriggerOverdueCheck handles POST /api/admin/overdue-check.
func (h *AdminHandler) TriggerOverdueCheck(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	res, err := h.scanner.CheckOverdueTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "Overdue check failed")
		return
	}

	log.Info("overdue check triggered via admin API",
		"source", res.Source,
		"count", len(res.TaskIDs),
		"enqueued", res.Enqueued)
	shared.RespondWithJSON(w, r, http.StatusOK, res)
}

// CacheStats handles GET /api/admin/cache/stats.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats(r.Context())
	shared.RespondWithJSON(w, r, http.StatusOK, CacheStatsResponse{
		Namespace: h.cache.Namespace(),
		KeyCount:  stats.KeyCount,
	})
}

// ClearCache handles DELETE /api/admin/cache.
func (h *AdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Clear(r.Context())
	logger.FromContextOrDefault(r.Context(), h.logger).Info("cache namespace cleared via admin API",
		"namespace", h.cache.Namespace())
	w.WriteHeader(http.StatusNoContent)
}
