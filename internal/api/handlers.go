package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/listing-scraper/internal/jobs"
)

// Defaults fill in fields a run request leaves out.
type Defaults struct {
	URL       string
	PageCount int
}

type Handlers struct {
	jobs     *jobs.Manager
	defaults Defaults
	logger   *slog.Logger
}

func NewHandlers(manager *jobs.Manager, defaults Defaults, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		jobs:     manager,
		defaults: defaults,
		logger:   logger.With("component", "api"),
	}
}

// CreateRunRequest represents the request to start a scrape run. Runs with a
// higher priority are taken off the queue first.
type CreateRunRequest struct {
	URL      string `json:"url"`
	Pages    int    `json:"pages"`
	Priority int    `json:"priority"`
}

// CreateRun enqueues a run and answers before it starts.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		req.URL = h.defaults.URL
	}
	if req.Pages == 0 {
		req.Pages = h.defaults.PageCount
	}

	job, err := h.jobs.CreateJobWithPriority(r.Context(), req.URL, req.Pages, req.Priority)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidJob) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusServiceUnavailable, "failed to create job")
		return
	}

	w.Header().Set("Location", "/api/v1/runs/"+job.ID)
	h.respondJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	job, err := h.jobs.GetJob(r.Context(), runID)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.jobs.ListJobs(r.Context()))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"jobs":   h.jobs.Stats(r.Context()),
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
