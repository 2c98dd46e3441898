package domain

import "time"

// JobStatus enumerates generation job lifecycle states. Transitions are
// monotonic: PENDING -> RUNNING -> COMPLETED|FAILED.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrorCategory classifies a job failure for reporting and retry decisions.
type ErrorCategory string

const (
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryAsset         ErrorCategory = "asset"
	CategoryTransform     ErrorCategory = "transform"
	CategoryCrash         ErrorCategory = "crash"
	CategoryInternal      ErrorCategory = "internal"
)

// GenerationJob wraps a GenerationRequest with queue bookkeeping. The ID is
// the idempotency key for redelivered attempts.
type GenerationJob struct {
	ID             string
	Request        GenerationRequest
	Status         JobStatus
	AttemptCount   int
	LeaseExpiresAt time.Time
	OutputPaths    []string
	ErrorMessage   string
	ErrorCategory  ErrorCategory
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
