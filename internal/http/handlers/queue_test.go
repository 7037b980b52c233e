package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"sakuga/internal/domain"
)

func queueRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/queue", app.QueueAdd)
	r.Get("/queue", app.QueueList)
	r.Delete("/queue/{id}", app.QueueDelete)
	r.Post("/queue/{id}/retry", app.QueueRetry)
	return r
}

func TestQueueAddEnqueuesAndKicks(t *testing.T) {
	env := newTestApp(t)
	router := queueRouter(env.app)

	body := `{"prompt":"a red fox","provider":"mock","count":30}`
	req := httptest.NewRequest(http.MethodPost, "/queue", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	var job domain.Job
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %q, want %q", job.Status, domain.JobStatusPending)
	}
	if job.Count != 10 {
		t.Fatalf("count = %d, want clamped to 10", job.Count)
	}
	if env.kicker.count() != 1 {
		t.Fatalf("kicks = %d, want 1", env.kicker.count())
	}
	if len(env.queue.jobs) != 1 {
		t.Fatalf("queued jobs = %d, want 1", len(env.queue.jobs))
	}
}

func TestQueueAddValidation(t *testing.T) {
	env := newTestApp(t)
	router := queueRouter(env.app)

	cases := []struct {
		name string
		body string
		code string
	}{
		{"missing prompt", `{"provider":"mock"}`, "bad_request"},
		{"blank prompt", `{"prompt":"   ","provider":"mock"}`, "bad_request"},
		{"missing provider", `{"prompt":"a fox"}`, "bad_request"},
		{"unknown provider", `{"prompt":"a fox","provider":"midjourney"}`, "unknown_provider"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/queue", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp["error"] != tc.code {
				t.Fatalf("error = %q, want %q", resp["error"], tc.code)
			}
		})
	}
	if env.kicker.count() != 0 {
		t.Fatalf("kicks = %d, want 0 on rejected requests", env.kicker.count())
	}
}

func TestQueueListReportsProcessingFlag(t *testing.T) {
	env := newTestApp(t)
	env.kicker.busy = true
	if err := env.queue.Enqueue(context.Background(), &domain.Job{ID: "job-1", Prompt: "x", Provider: "mock"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	router := queueRouter(env.app)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queue", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Jobs       []domain.Job `json:"jobs"`
		Processing bool         `json:"processing"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Jobs) != 1 {
		t.Fatalf("jobs = %d, want 1", len(resp.Jobs))
	}
	if !resp.Processing {
		t.Fatal("processing = false, want true")
	}
}

func TestQueueDeleteRefusesProcessingJob(t *testing.T) {
	env := newTestApp(t)
	ctx := context.Background()
	if err := env.queue.Enqueue(ctx, &domain.Job{ID: "job-1", Prompt: "x", Provider: "mock"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := env.queue.SetStatus(ctx, "job-1", domain.JobStatusProcessing, ""); err != nil {
		t.Fatalf("set status: %v", err)
	}
	router := queueRouter(env.app)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/queue/job-1", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "job_processing" {
		t.Fatalf("error = %q, want %q", resp["error"], "job_processing")
	}
	if len(env.queue.jobs) != 1 {
		t.Fatal("processing job was removed")
	}
}

func TestQueueDeleteRemovesPendingJob(t *testing.T) {
	env := newTestApp(t)
	if err := env.queue.Enqueue(context.Background(), &domain.Job{ID: "job-1", Prompt: "x", Provider: "mock"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	router := queueRouter(env.app)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/queue/job-1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(env.queue.jobs) != 0 {
		t.Fatalf("queued jobs = %d, want 0", len(env.queue.jobs))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/queue/job-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestQueueRetry(t *testing.T) {
	env := newTestApp(t)
	ctx := context.Background()
	if err := env.queue.Enqueue(ctx, &domain.Job{ID: "job-1", Prompt: "x", Provider: "mock"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := env.queue.SetStatus(ctx, "job-1", domain.JobStatusFailed, "provider exploded"); err != nil {
		t.Fatalf("set status: %v", err)
	}
	router := queueRouter(env.app)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue/job-1/retry", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var job domain.Job
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if job.Status != domain.JobStatusPending {
		t.Fatalf("status = %q, want %q", job.Status, domain.JobStatusPending)
	}
	if job.Error != "" {
		t.Fatalf("error = %q, want cleared", job.Error)
	}
	if job.RetryCount != 1 {
		t.Fatalf("retry count = %d, want 1", job.RetryCount)
	}
	if env.kicker.count() != 1 {
		t.Fatalf("kicks = %d, want 1", env.kicker.count())
	}

	// A pending job cannot be retried again.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue/job-1/retry", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("retry pending status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	var errResp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if errResp["error"] != "invalid_state" {
		t.Fatalf("error = %q, want %q", errResp["error"], "invalid_state")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/queue/missing/retry", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("retry missing status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
