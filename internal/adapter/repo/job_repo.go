package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"uniqbot/internal/domain"
	"uniqbot/internal/infra"
	"uniqbot/internal/sqlinline"
)

// JobRepositoryPG is the durable job queue backed by PostgreSQL. Claiming
// uses FOR UPDATE SKIP LOCKED, so any number of workers can share one table
// without handing the same job to two of them while a lease is live.
type JobRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewJobRepository constructs a job repository over the given executor.
func NewJobRepository(sql infra.SQLExecutor) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql}
}

// Insert stores a new PENDING job.
func (r *JobRepositoryPG) Insert(ctx context.Context, job *domain.GenerationJob) error {
	reqJSON, err := json.Marshal(job.Request)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInsertJob, job.ID, reqJSON); err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Claim atomically takes the oldest runnable job (PENDING, or RUNNING with an
// expired lease) and marks it RUNNING with a fresh lease. Returns
// domain.ErrNoJob when the queue is empty.
func (r *JobRepositoryPG) Claim(ctx context.Context, lease time.Duration) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimJob, int(lease.Seconds()))

	var (
		job     domain.GenerationJob
		reqJSON []byte
	)
	if err := row.Scan(&job.ID, &reqJSON, &job.AttemptCount, &job.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNoJob
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if err := json.Unmarshal(reqJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("decode request for job %s: %w", job.ID, err)
	}
	job.Status = domain.JobStatusRunning
	return &job, nil
}

// Complete marks a RUNNING job COMPLETED with its ordered artifact keys.
func (r *JobRepositoryPG) Complete(ctx context.Context, jobID string, outputPaths []string) error {
	paths, err := json.Marshal(outputPaths)
	if err != nil {
		return fmt.Errorf("encode output paths: %w", err)
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QCompleteJob, jobID, paths)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete job %s: not running: %w", jobID, domain.ErrNotFound)
	}
	return nil
}

// Fail marks a RUNNING job FAILED. Terminal: failed jobs are never retried,
// redelivery happens only through lease expiry of jobs still RUNNING.
func (r *JobRepositoryPG) Fail(ctx context.Context, jobID string, category domain.ErrorCategory, message string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QFailJob, jobID, string(category), message)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fail job %s: not running: %w", jobID, domain.ErrNotFound)
	}
	return nil
}

// Get loads a job by id.
func (r *JobRepositoryPG) Get(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectJob, jobID)

	var (
		job       domain.GenerationJob
		status    string
		category  string
		reqJSON   []byte
		pathsJSON []byte
	)
	err := row.Scan(&job.ID, &status, &reqJSON, &job.AttemptCount,
		&job.LeaseExpiresAt, &pathsJSON, &job.ErrorMessage, &category,
		&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("select job %s: %w", jobID, err)
	}
	job.Status = domain.JobStatus(status)
	job.ErrorCategory = domain.ErrorCategory(category)
	if err := json.Unmarshal(reqJSON, &job.Request); err != nil {
		return nil, fmt.Errorf("decode request for job %s: %w", jobID, err)
	}
	if err := json.Unmarshal(pathsJSON, &job.OutputPaths); err != nil {
		return nil, fmt.Errorf("decode output paths for job %s: %w", jobID, err)
	}
	return &job, nil
}
