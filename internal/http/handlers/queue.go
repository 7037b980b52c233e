package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sakuga/internal/domain"
)

type enqueueRequest struct {
	Prompt      string `json:"prompt"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	AspectRatio string `json:"aspectRatio"`
	Count       int    `json:"count"`
}

// QueueAdd enqueues a generation job and wakes the processor.
func (a *App) QueueAdd(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}
	if req.Provider == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "provider is required")
		return
	}
	if _, err := a.Registry.Resolve(req.Provider); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Count < 1 {
		req.Count = 1
	}
	if req.Count > maxCount {
		req.Count = maxCount
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		Prompt:      req.Prompt,
		Provider:    req.Provider,
		Model:       req.Model,
		AspectRatio: req.AspectRatio,
		Count:       req.Count,
	}
	if err := a.Queue.Enqueue(r.Context(), job); err != nil {
		a.fail(w, r, err)
		return
	}
	a.Processor.Kick()
	a.json(w, http.StatusAccepted, job)
}

// QueueList returns all queued jobs, oldest first.
func (a *App) QueueList(w http.ResponseWriter, r *http.Request) {
	jobs, err := a.Queue.List(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}
	a.json(w, http.StatusOK, map[string]any{
		"jobs":       jobs,
		"processing": a.Processor.Busy(),
	})
}

// QueueDelete removes a job. A job currently processing cannot be
// deleted; the client gets a conflict and can retry after it settles.
func (a *App) QueueDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Queue.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if job.Status == domain.JobStatusProcessing {
		a.error(w, http.StatusConflict, "job_processing", "job is currently processing")
		return
	}
	if err := a.Queue.Remove(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// QueueRetry requeues a failed job and wakes the processor.
func (a *App) QueueRetry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := a.Queue.Retry(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.Processor.Kick()
	a.json(w, http.StatusOK, job)
}
