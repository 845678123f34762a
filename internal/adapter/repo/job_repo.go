package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mediaforge/internal/domain"
)

// JobRepositoryPG persists provider jobs in PostgreSQL. It is authoritative
// for the asynchronous path, where a later callback finishes the job.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new provider job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.ProviderJob) error {
	query := `
INSERT INTO provider_jobs (id, user_id, provider, model, provider_task_id, status, output_url, idempotency_key)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.Provider,
		job.Model,
		job.ProviderTaskID,
		job.Status,
		job.OutputURL,
		job.IdempotencyKey,
	)
	return err
}

// UpdateStatus updates job status and optionally the output URL.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, outputURL *string) error {
	query := `
UPDATE provider_jobs
SET status = $2,
    updated_at = NOW(),
    output_url = COALESCE($3, output_url)
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, status, outputURL)
	return err
}

// MarkSucceeded transitions a job to succeeded with its final output URL
// unless it already is terminal-success, reporting whether this call won the
// transition. Concurrent duplicate callbacks collapse to one effective
// completion.
func (r *JobRepositoryPG) MarkSucceeded(ctx context.Context, jobID, outputURL string) (bool, error) {
	query := `
UPDATE provider_jobs
SET status = $2,
    updated_at = NOW(),
    output_url = $3
WHERE id = $1 AND status <> $2;
`
	tag, err := r.pool.Exec(ctx, query, jobID, domain.JobStatusSucceeded, outputURL)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID fetches a job by its internal identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.ProviderJob, error) {
	query := `
SELECT id, user_id, provider, model, provider_task_id, status, output_url, idempotency_key, created_at, updated_at
FROM provider_jobs
WHERE id = $1;
`
	return r.scanJob(r.pool.QueryRow(ctx, query, jobID))
}

// GetByUserAndKey returns the newest job submitted by the user under the
// given idempotency key, or domain.ErrNotFound. Duplicate submissions resolve
// against this row instead of reaching the provider again.
func (r *JobRepositoryPG) GetByUserAndKey(ctx context.Context, userID, key string) (*domain.ProviderJob, error) {
	query := `
SELECT id, user_id, provider, model, provider_task_id, status, output_url, idempotency_key, created_at, updated_at
FROM provider_jobs
WHERE user_id = $1 AND idempotency_key = $2
ORDER BY created_at DESC
LIMIT 1;
`
	return r.scanJob(r.pool.QueryRow(ctx, query, userID, key))
}

func (r *JobRepositoryPG) scanJob(row pgx.Row) (*domain.ProviderJob, error) {
	var job domain.ProviderJob
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.Provider,
		&job.Model,
		&job.ProviderTaskID,
		&job.Status,
		&job.OutputURL,
		&job.IdempotencyKey,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}
