package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/models"
)

type JobRepository interface {
	// EnqueueJob ставит задачу. Повторная постановка с тем же DedupeKey ничего не делает.
	EnqueueJob(ctx context.Context, job *models.ScheduledJob) error
	DueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error)
	MarkJobDone(ctx context.Context, id uuid.UUID, now time.Time) error
	// MarkJobFailed записывает ошибку и либо переносит задачу на retryAt, либо закрывает её как failed.
	MarkJobFailed(ctx context.Context, id uuid.UUID, lastErr string, retryAt time.Time, final bool, now time.Time) error
}
