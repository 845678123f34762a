package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediaforge/internal/domain"
)

// GenerationLogRepositoryPG records per-request analytics rows. Writes are
// best-effort: callers log failures and move on.
type GenerationLogRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewGenerationLogRepository creates a new log repository backed by PostgreSQL.
func NewGenerationLogRepository(pool *pgxpool.Pool) *GenerationLogRepositoryPG {
	return &GenerationLogRepositoryPG{pool: pool}
}

// Insert writes one generation log row.
func (r *GenerationLogRepositoryPG) Insert(ctx context.Context, entry *domain.GenerationLog) error {
	query := `
INSERT INTO generation_logs (id, user_id, model, provider, status, error_code, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Model,
		entry.Provider,
		entry.Status,
		entry.ErrorCode,
		entry.DurationMS,
	)
	return err
}
