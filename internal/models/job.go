package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Типы отложенных задач
const (
	JobTypeAutoApprove   = "auto_approve"
	JobTypeClearEarnings = "clear_earnings"
)

const (
	JobStatusPending = "pending"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// ScheduledJob - отложенное системное действие над заказом.
// DedupeKey не даёт поставить одну и ту же задачу дважды.
type ScheduledJob struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Type      string    `db:"job_type" json:"job_type"`
	OrderID   uuid.UUID `db:"order_id" json:"order_id"`
	DedupeKey string    `db:"dedupe_key" json:"dedupe_key"`
	RunAt     time.Time `db:"run_at" json:"run_at"`
	Status    string    `db:"status" json:"status"`
	Attempts  int       `db:"attempts" json:"attempts"`
	LastError *string   `db:"last_error" json:"last_error,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewScheduledJob создаёт задачу для заказа. round различает повторные постановки,
// например автоприёмку после доработки.
func NewScheduledJob(jobType string, orderID uuid.UUID, round int, runAt, now time.Time) ScheduledJob {
	return ScheduledJob{
		ID:        uuid.New(),
		Type:      jobType,
		OrderID:   orderID,
		DedupeKey: fmt.Sprintf("%s:%s:%d", jobType, orderID, round),
		RunAt:     runAt,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
