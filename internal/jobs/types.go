// Package jobs defines the background work the worker runs: processing one
// uploaded document per job.
package jobs

import (
	"context"
	"errors"
	"time"
)

// JobType represents the type of job to be executed.
type JobType string

const (
	// JobTypeProcessDocument runs one document through the ingestion pipeline.
	JobTypeProcessDocument JobType = "process_document"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobStatusPending indicates the job is waiting to be processed.
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning indicates the job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates the job reached a final outcome.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed and exhausted its retries.
	JobStatusFailed JobStatus = "failed"
	// JobStatusRetrying indicates the job failed and is being retried.
	JobStatusRetrying JobStatus = "retrying"
)

// ErrAlreadyQueued is returned when a job for the same document is pending
// or running.
var ErrAlreadyQueued = errors.New("jobs: document already queued")

// ProcessDocumentJob represents a job to process one uploaded document.
type ProcessDocumentJob struct {
	JobID      string `json:"job_id"`
	DocumentID string `json:"document_id"`

	Status JobStatus `json:"status"`
	// Outcome is the pipeline outcome of the last attempt, e.g. "soft_failure".
	Outcome string `json:"outcome,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Error      string `json:"error,omitempty"`
	RetryCount int    `json:"retry_count"`
	MaxRetries int    `json:"max_retries"`
}

// GetType returns the job type.
func (j *ProcessDocumentJob) GetType() JobType {
	return JobTypeProcessDocument
}

// Publisher enqueues jobs.
type Publisher interface {
	PublishProcessDocument(ctx context.Context, job *ProcessDocumentJob) error
	Close() error
}

// Consumer runs queued jobs.
type Consumer interface {
	// Start begins consuming jobs from the queue.
	// The handler function is called for each job received.
	Start(ctx context.Context, handler JobHandler) error

	// Stop stops consuming jobs and waits for in-flight jobs to complete.
	Stop(ctx context.Context) error
}

// JobHandler processes a job. A returned error means the attempt failed
// and should be retried.
type JobHandler func(ctx context.Context, job *ProcessDocumentJob) error

// JobStore records job state.
type JobStore interface {
	SaveJob(ctx context.Context, job *ProcessDocumentJob) error
	GetJob(ctx context.Context, jobID string) (*ProcessDocumentJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ProcessDocumentJob, error)
}

// JobFilter defines filtering criteria for listing jobs.
type JobFilter struct {
	DocumentID string
	Status     JobStatus

	Limit  int
	Offset int
}
