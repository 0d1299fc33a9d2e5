package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/repository/common"
)

const orderColumns = `id, order_number, buyer_id, seller_id, service_id,
	service_title, service_type, platform, unit_price, quantity, turnaround_hours, seller_tier,
	requirements, target_url, base_cost, platform_fee, total_cost, escrow_amount,
	status, escrow_status, revision_count,
	proof_url, proof_description, proof_screenshots, proof_submitted_at,
	decline_reason, deadline, review_deadline, auto_approved,
	accepted_at, declined_at, delivered_at, approved_at, disputed_at, completed_at, refunded_at,
	version, created_at, updated_at`

const defaultListLimit = 20

// GetOrder возвращает заказ по идентификатору.
func (q *queries) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := common.GetByID[entity.Order](ctx, q.db, "orders", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("order repository: get by id: %w", err)
	}
	return order, nil
}

// LockOrder читает заказ с блокировкой FOR UPDATE.
func (q *queries) LockOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := common.LockByID[entity.Order](ctx, q.db, "orders", id, domainrepo.ErrNotFound)
	if err != nil {
		return nil, fmt.Errorf("order repository: lock: %w", err)
	}
	return order, nil
}

// InsertOrder сохраняет новый заказ. Совпадение номера заказа даёт ErrDuplicate.
func (q *queries) InsertOrder(ctx context.Context, order *entity.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `) VALUES (` + namedPlaceholders(orderColumns) + `)`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, order); err != nil {
		if common.IsUniqueViolation(err) {
			return domainrepo.ErrDuplicate
		}
		return fmt.Errorf("order repository: insert: %w", err)
	}
	return nil
}

// UpdateOrder сохраняет изменяемые поля заказа с проверкой версии.
func (q *queries) UpdateOrder(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			escrow_amount = :escrow_amount,
			status = :status,
			escrow_status = :escrow_status,
			revision_count = :revision_count,
			proof_url = :proof_url,
			proof_description = :proof_description,
			proof_screenshots = :proof_screenshots,
			proof_submitted_at = :proof_submitted_at,
			decline_reason = :decline_reason,
			deadline = :deadline,
			review_deadline = :review_deadline,
			auto_approved = :auto_approved,
			accepted_at = :accepted_at,
			declined_at = :declined_at,
			delivered_at = :delivered_at,
			approved_at = :approved_at,
			disputed_at = :disputed_at,
			completed_at = :completed_at,
			refunded_at = :refunded_at,
			updated_at = :updated_at,
			version = version + 1
		WHERE id = :id AND version = :version
	`
	res, err := sqlx.NamedExecContext(ctx, q.db, query, order)
	if err != nil {
		return fmt.Errorf("order repository: update: %w", err)
	}
	if err := common.ExpectOneRow(res, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	order.Version++
	return nil
}

// ListOrders возвращает заказы по фильтру, новые первыми.
func (q *queries) ListOrders(ctx context.Context, filter domainrepo.OrderFilter) ([]entity.Order, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.BuyerID != nil {
		args = append(args, *filter.BuyerID)
		where = append(where, fmt.Sprintf("buyer_id = $%d", len(args)))
	}
	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		where = append(where, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	orders := []entity.Order{}
	if err := sqlx.SelectContext(ctx, q.db, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("order repository: list: %w", err)
	}
	return orders, nil
}

func (q *queries) InsertRevision(ctx context.Context, rev *entity.RevisionRequest) error {
	query := `
		INSERT INTO order_revisions (id, order_id, reason, instructions, requested_at)
		VALUES (:id, :order_id, :reason, :instructions, :requested_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, rev); err != nil {
		return fmt.Errorf("order repository: insert revision: %w", err)
	}
	return nil
}

func (q *queries) ListRevisions(ctx context.Context, orderID uuid.UUID) ([]entity.RevisionRequest, error) {
	query := `
		SELECT id, order_id, reason, instructions, requested_at
		FROM order_revisions
		WHERE order_id = $1
		ORDER BY requested_at
	`
	revisions := []entity.RevisionRequest{}
	if err := sqlx.SelectContext(ctx, q.db, &revisions, query, orderID); err != nil {
		return nil, fmt.Errorf("order repository: list revisions: %w", err)
	}
	return revisions, nil
}

// SumHeldEscrow считает деньги покупателя, которые ещё удерживаются в эскроу.
func (q *queries) SumHeldEscrow(ctx context.Context, buyerID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(escrow_amount), 0)
		FROM orders
		WHERE buyer_id = $1 AND escrow_status = ANY($2)
	`
	held := []string{
		string(valueobject.EscrowStatusLocked),
		string(valueobject.EscrowStatusActive),
		string(valueobject.EscrowStatusUnderReview),
		string(valueobject.EscrowStatusDisputed),
	}
	var sum decimal.Decimal
	if err := sqlx.GetContext(ctx, q.db, &sum, query, buyerID, pqArray(held)); err != nil {
		return decimal.Zero, fmt.Errorf("order repository: sum held escrow: %w", err)
	}
	return sum, nil
}

// namedPlaceholders превращает список колонок в список именованных параметров sqlx.
func namedPlaceholders(columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = ":" + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
