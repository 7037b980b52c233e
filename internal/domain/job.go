package domain

import "time"

// JobStatus enumerates queue job lifecycle states. Completed jobs are
// removed from the queue rather than kept in a terminal state.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusFailed     JobStatus = "failed"
)

// Job is a queued generation request awaiting the processor.
type Job struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	Provider    string    `json:"provider"`
	Model       string    `json:"model,omitempty"`
	AspectRatio string    `json:"aspectRatio,omitempty"`
	Count       int       `json:"count"`
	Status      JobStatus `json:"status"`
	Error       string    `json:"error,omitempty"`
	RetryCount  int       `json:"retryCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
