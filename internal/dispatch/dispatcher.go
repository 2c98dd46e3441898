// Package dispatch owns the asynchronous job lifecycle: submission into the
// durable queue, worker execution, redelivery after crashes and result
// notifications back to the conversation layer.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"uniqbot/internal/domain"
)

// JobStore is the durable queue contract (implemented by repo.JobRepositoryPG).
type JobStore interface {
	Insert(ctx context.Context, job *domain.GenerationJob) error
	Claim(ctx context.Context, lease time.Duration) (*domain.GenerationJob, error)
	Complete(ctx context.Context, jobID string, outputPaths []string) error
	Fail(ctx context.Context, jobID string, category domain.ErrorCategory, message string) error
	Get(ctx context.Context, jobID string) (*domain.GenerationJob, error)
}

// PresetStore resolves preset ids (implemented by repo.PresetRepositoryPG).
type PresetStore interface {
	Get(ctx context.Context, id int) (domain.Preset, error)
}

// WakeQueue nudges idle workers when a job is submitted. Best-effort: the
// durable state lives in the JobStore, so a lost wake-up only delays pickup
// until the next poll.
type WakeQueue interface {
	Push(ctx context.Context, jobID string) error
	Wait(ctx context.Context, timeout time.Duration) (string, error)
}

// Dispatcher accepts fully resolved generation requests and enqueues them.
// Submit never blocks on execution.
type Dispatcher struct {
	store  JobStore
	queue  WakeQueue
	logger zerolog.Logger
}

// NewDispatcher builds a dispatcher. queue may be nil when running without
// redis; workers then rely on polling alone.
func NewDispatcher(store JobStore, queue WakeQueue, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: store, queue: queue, logger: logger}
}

// Submit persists the request as a PENDING job and returns its id. Ranges
// were validated at input time; Validate here only guards direct callers
// that bypass the conversation layer.
func (d *Dispatcher) Submit(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	job := &domain.GenerationJob{
		ID:      uuid.NewString(),
		Request: req,
		Status:  domain.JobStatusPending,
	}
	if err := d.store.Insert(ctx, job); err != nil {
		return "", fmt.Errorf("enqueue: %w", err)
	}
	if d.queue != nil {
		if err := d.queue.Push(ctx, job.ID); err != nil {
			d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("dispatch: wake-up push failed, workers will poll")
		}
	}
	d.logger.Info().Str("job_id", job.ID).Int("copies", req.CopiesCount).
		Str("format", string(req.FileFormat)).Msg("dispatch: job submitted")
	return job.ID, nil
}

// Status returns the current job record.
func (d *Dispatcher) Status(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	return d.store.Get(ctx, jobID)
}
