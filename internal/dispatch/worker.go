package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"uniqbot/internal/domain"
)

// Generator renders the artifact set for one claimed job (implemented by
// uniquify.Engine).
type Generator interface {
	Generate(ctx context.Context, jobID string, req domain.GenerationRequest, preset domain.Preset) ([]string, error)
}

// ArtifactStore is the slice of the blob store the worker needs to clear
// leftovers from a previous attempt before re-running a redelivered job.
type ArtifactStore interface {
	RemovePrefix(ctx context.Context, prefix string) error
}

// ArtifactPrefixFunc maps a job id to its artifact storage prefix.
type ArtifactPrefixFunc func(jobID string) string

// WorkerConfig carries the tunables of one worker loop.
type WorkerConfig struct {
	Lease        time.Duration
	MaxAttempts  int
	PollInterval time.Duration
}

// Worker claims jobs and runs them to a terminal status. Several workers can
// run against the same store; SKIP LOCKED claiming keeps them from colliding.
type Worker struct {
	cfg       WorkerConfig
	store     JobStore
	presets   PresetStore
	engine    Generator
	artifacts ArtifactStore
	prefix    ArtifactPrefixFunc
	queue     WakeQueue
	notifier  Notifier
	logger    zerolog.Logger
}

// NewWorker wires a worker. queue and notifier may be nil: without a queue
// the worker polls on cfg.PollInterval alone, without a notifier terminal
// transitions are only observable through job status reads.
func NewWorker(
	cfg WorkerConfig,
	store JobStore,
	presets PresetStore,
	engine Generator,
	artifacts ArtifactStore,
	prefix ArtifactPrefixFunc,
	queue WakeQueue,
	notifier Notifier,
	logger zerolog.Logger,
) *Worker {
	return &Worker{
		cfg:       cfg,
		store:     store,
		presets:   presets,
		engine:    engine,
		artifacts: artifacts,
		prefix:    prefix,
		queue:     queue,
		notifier:  notifier,
		logger:    logger,
	}
}

// Run processes jobs until ctx is done. Between wake-ups it drains the queue
// completely, so a burst of submissions needs only one wake-up per worker.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info().Dur("lease", w.cfg.Lease).Int("max_attempts", w.cfg.MaxAttempts).
		Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			w.logger.Info().Msg("worker: stopped")
			return
		}

		worked := w.Drain(ctx)
		if worked {
			continue
		}

		if w.queue != nil {
			if _, err := w.queue.Wait(ctx, w.cfg.PollInterval); err != nil && ctx.Err() == nil {
				w.logger.Warn().Err(err).Msg("worker: wake-up wait failed, falling back to poll")
				w.sleep(ctx)
			}
			continue
		}
		w.sleep(ctx)
	}
}

// Drain claims and runs jobs until the queue is empty. Reports whether at
// least one job was processed.
func (w *Worker) Drain(ctx context.Context) bool {
	worked := false
	for {
		job, err := w.store.Claim(ctx, w.cfg.Lease)
		if err != nil {
			if err != domain.ErrNoJob && ctx.Err() == nil {
				w.logger.Error().Err(err).Msg("worker: claim failed")
			}
			return worked
		}
		worked = true
		w.runJob(ctx, job)
	}
}

func (w *Worker) runJob(ctx context.Context, job *domain.GenerationJob) {
	log := w.logger.With().Str("job_id", job.ID).Int("attempt", job.AttemptCount).Logger()
	log.Info().Int("copies", job.Request.CopiesCount).Msg("worker: job claimed")

	// A job redelivered this many times has crashed the worker repeatedly;
	// give up instead of crash-looping on it.
	if job.AttemptCount > w.cfg.MaxAttempts {
		w.finishFailed(ctx, log, job, domain.CategoryCrash, "attempt limit exceeded")
		return
	}

	// Redelivery means a previous attempt may have died mid-write. Clearing
	// the prefix keeps the final artifact set all-or-nothing.
	if job.AttemptCount > 1 {
		if err := w.artifacts.RemovePrefix(ctx, w.prefix(job.ID)); err != nil {
			log.Error().Err(err).Msg("worker: stale artifact cleanup failed")
			return // lease expiry will redeliver
		}
		log.Debug().Msg("worker: stale artifacts removed")
	}

	preset, err := w.presets.Get(ctx, job.Request.PresetID)
	if err != nil {
		w.finishFailed(ctx, log, job, domain.CategoryForError(err), err.Error())
		return
	}

	started := time.Now()
	paths, err := w.engine.Generate(ctx, job.ID, job.Request, preset)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-job: leave it RUNNING, the lease will expire and
			// another worker picks it up.
			log.Warn().Msg("worker: shutdown during job, leaving for redelivery")
			return
		}
		w.finishFailed(ctx, log, job, domain.CategoryForError(err), err.Error())
		return
	}

	if err := w.store.Complete(ctx, job.ID, paths); err != nil {
		log.Error().Err(err).Msg("worker: complete failed")
		return
	}
	log.Info().Int("artifacts", len(paths)).Dur("took", time.Since(started)).
		Msg("worker: job completed")
	w.notify(ctx, Notification{
		JobID:       job.ID,
		Status:      string(domain.JobStatusCompleted),
		OutputPaths: paths,
	})
}

// finishFailed records a terminal failure. Failures are never retried: only
// crashes (lease expiry) lead to redelivery.
func (w *Worker) finishFailed(ctx context.Context, log zerolog.Logger, job *domain.GenerationJob, category domain.ErrorCategory, message string) {
	log.Error().Str("category", string(category)).Str("reason", message).Msg("worker: job failed")
	if err := w.store.Fail(ctx, job.ID, category, message); err != nil {
		log.Error().Err(err).Msg("worker: fail transition failed")
		return
	}
	w.notify(ctx, Notification{
		JobID:         job.ID,
		Status:        string(domain.JobStatusFailed),
		ErrorCategory: string(category),
		ErrorMessage:  message,
	})
}

func (w *Worker) notify(ctx context.Context, note Notification) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Publish(ctx, note); err != nil {
		w.logger.Warn().Err(err).Str("job_id", note.JobID).Msg("worker: notify failed")
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.PollInterval):
	}
}
