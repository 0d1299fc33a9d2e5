package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/repository/common"
)

// EnqueueJob ставит задачу. Дубликат по dedupe_key молча пропускается.
func (q *queries) EnqueueJob(ctx context.Context, job *models.ScheduledJob) error {
	query := `
		INSERT INTO scheduled_jobs (id, job_type, order_id, dedupe_key, run_at, status, attempts, last_error, created_at, updated_at)
		VALUES (:id, :job_type, :order_id, :dedupe_key, :run_at, :status, :attempts, :last_error, :created_at, :updated_at)
		ON CONFLICT (dedupe_key) DO NOTHING
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, job); err != nil {
		return fmt.Errorf("job repository: enqueue: %w", err)
	}
	return nil
}

// DueJobs выбирает созревшие задачи. SKIP LOCKED позволяет нескольким экземплярам
// разбирать очередь параллельно, если выборка идёт внутри транзакции.
func (q *queries) DueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	query := `
		SELECT id, job_type, order_id, dedupe_key, run_at, status, attempts, last_error, created_at, updated_at
		FROM scheduled_jobs
		WHERE status = $1 AND run_at <= $2
		ORDER BY run_at
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`
	jobs := []models.ScheduledJob{}
	if err := sqlx.SelectContext(ctx, q.db, &jobs, query, models.JobStatusPending, now, limit); err != nil {
		return nil, fmt.Errorf("job repository: due jobs: %w", err)
	}
	return jobs, nil
}

func (q *queries) MarkJobDone(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `UPDATE scheduled_jobs SET status = $2, attempts = attempts + 1, updated_at = $3 WHERE id = $1`
	res, err := q.db.ExecContext(ctx, query, id, models.JobStatusDone, now)
	if err != nil {
		return fmt.Errorf("job repository: mark done: %w", err)
	}
	return common.ExpectOneRow(res, domainrepo.ErrNotFound)
}

func (q *queries) MarkJobFailed(ctx context.Context, id uuid.UUID, lastErr string, retryAt time.Time, final bool, now time.Time) error {
	status := models.JobStatusPending
	if final {
		status = models.JobStatusFailed
	}
	query := `
		UPDATE scheduled_jobs
		SET status = $2, attempts = attempts + 1, last_error = $3, run_at = $4, updated_at = $5
		WHERE id = $1
	`
	res, err := q.db.ExecContext(ctx, query, id, status, lastErr, retryAt, now)
	if err != nil {
		return fmt.Errorf("job repository: mark failed: %w", err)
	}
	return common.ExpectOneRow(res, domainrepo.ErrNotFound)
}
