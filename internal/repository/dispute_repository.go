package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/repository/common"
)

const disputeColumns = `id, dispute_number, order_id, initiator_id, initiator_role, respondent_id,
	dispute_type, status, reason, description, evidence,
	response, response_evidence, responded_at,
	resolution, refund_percentage, resolution_notes, buyer_refund, seller_payout, resolved_by, resolved_at,
	appeal_reason, appeal_evidence, appealed_by, appealed_at,
	version, created_at, updated_at`

// GetDispute возвращает спор по идентификатору.
func (q *queries) GetDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	dispute, err := common.GetByID[entity.Dispute](ctx, q.db, "disputes", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get by id: %w", err)
	}
	return dispute, nil
}

func (q *queries) LockDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	dispute, err := common.LockByID[entity.Dispute](ctx, q.db, "disputes", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: lock: %w", err)
	}
	return dispute, nil
}

// GetDisputeByOrder возвращает спор по заказу. По заказу может быть только один спор.
func (q *queries) GetDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	dispute, err := common.GetByField[entity.Dispute](ctx, q.db, "disputes", "order_id", orderID, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("dispute repository: get by order: %w", err)
	}
	return dispute, nil
}

func (q *queries) InsertDispute(ctx context.Context, dispute *entity.Dispute) error {
	query := `INSERT INTO disputes (` + disputeColumns + `) VALUES (` + namedPlaceholders(disputeColumns) + `)`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, dispute); err != nil {
		if common.IsUniqueViolation(err) {
			return domainrepo.ErrDuplicate
		}
		return fmt.Errorf("dispute repository: insert: %w", err)
	}
	return nil
}

// UpdateDispute сохраняет ответ, решение и апелляцию с проверкой версии.
func (q *queries) UpdateDispute(ctx context.Context, dispute *entity.Dispute) error {
	query := `
		UPDATE disputes SET
			status = :status,
			response = :response,
			response_evidence = :response_evidence,
			responded_at = :responded_at,
			resolution = :resolution,
			refund_percentage = :refund_percentage,
			resolution_notes = :resolution_notes,
			buyer_refund = :buyer_refund,
			seller_payout = :seller_payout,
			resolved_by = :resolved_by,
			resolved_at = :resolved_at,
			appeal_reason = :appeal_reason,
			appeal_evidence = :appeal_evidence,
			appealed_by = :appealed_by,
			appealed_at = :appealed_at,
			updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version
	`
	res, err := sqlx.NamedExecContext(ctx, q.db, query, dispute)
	if err != nil {
		return fmt.Errorf("dispute repository: update: %w", err)
	}
	if err := common.ExpectOneRow(res, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	dispute.Version++
	return nil
}

// ListDisputesForUser возвращает споры, где пользователь - инициатор или ответчик.
func (q *queries) ListDisputesForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Dispute, error) {
	limit, offset = paging(limit, offset)
	query := `
		SELECT ` + disputeColumns + `
		FROM disputes
		WHERE initiator_id = $1 OR respondent_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	disputes := []entity.Dispute{}
	if err := sqlx.SelectContext(ctx, q.db, &disputes, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("dispute repository: list for user: %w", err)
	}
	return disputes, nil
}
