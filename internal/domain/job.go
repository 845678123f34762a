package domain

import "time"

// JobStatus enumerates the provider-job lifecycle.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSucceeded  JobStatus = "succeeded"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCanceled   JobStatus = "canceled"
)

// Terminal reports whether no further provider-side transition can occur.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusSucceeded, JobStatusFailed, JobStatusCanceled:
		return true
	}
	return false
}

// ProviderJob tracks one generation task handed to a provider. Synchronous
// jobs live and die inside a single request; asynchronous jobs are persisted
// and completed later by the provider callback.
type ProviderJob struct {
	ID             string
	UserID         string
	Provider       string
	Model          string
	ProviderTaskID string
	Status         JobStatus
	OutputURL      *string
	IdempotencyKey *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OutputAsset is the durable result of a successful job. Immutable once
// created; exactly one per succeeded job.
type OutputAsset struct {
	Bucket      string
	Path        string
	URL         string
	ContentType string
}

// GenerationLog is a best-effort analytics row recorded per orchestrated
// request. Its write failures never affect the response.
type GenerationLog struct {
	ID         string
	UserID     string
	Model      string
	Provider   string
	Status     string
	ErrorCode  string
	DurationMS int64
	CreatedAt  time.Time
}
