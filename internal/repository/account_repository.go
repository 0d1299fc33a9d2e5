package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/repository/common"
)

const accountColumns = `user_id, credit_balance, pending_balance, available_balance, version, created_at, updated_at`

const ledgerColumns = `seq, id, user_id, balance_field, type, amount, balance_before, balance_after,
	order_id, dispute_id, related_user_id, reference, description, created_at`

// GetAccount возвращает счёт пользователя. Счёт без движений возвращается пустым.
func (q *queries) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	var acc models.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1`
	if err := sqlx.GetContext(ctx, q.db, &acc, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.NewAccount(userID, time.Now().UTC()), nil
		}
		return nil, fmt.Errorf("account repository: get: %w", err)
	}
	return &acc, nil
}

// LockAccount лениво создаёт строку счёта и блокирует её до конца транзакции.
func (q *queries) LockAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	insert := `
		INSERT INTO accounts (user_id, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := q.db.ExecContext(ctx, insert, userID); err != nil {
		return nil, fmt.Errorf("account repository: ensure: %w", err)
	}

	var acc models.Account
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, q.db, &acc, query, userID); err != nil {
		return nil, fmt.Errorf("account repository: lock: %w", err)
	}
	return &acc, nil
}

// UpdateAccount сохраняет балансы, если версия счёта не изменилась.
func (q *queries) UpdateAccount(ctx context.Context, acc *models.Account) error {
	query := `
		UPDATE accounts SET
			credit_balance = :credit_balance,
			pending_balance = :pending_balance,
			available_balance = :available_balance,
			updated_at = :updated_at,
			version = version + 1
		WHERE user_id = :user_id AND version = :version
	`
	res, err := sqlx.NamedExecContext(ctx, q.db, query, acc)
	if err != nil {
		return fmt.Errorf("account repository: update: %w", err)
	}
	if err := common.ExpectOneRow(res, domainrepo.ErrVersionConflict); err != nil {
		return err
	}
	acc.Version++
	return nil
}

// AppendLedgerEntry дописывает запись в журнал и заполняет её seq.
func (q *queries) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, user_id, balance_field, type, amount, balance_before, balance_after,
			order_id, dispute_id, related_user_id, reference, description, created_at)
		VALUES (:id, :user_id, :balance_field, :type, :amount, :balance_before, :balance_after,
			:order_id, :dispute_id, :related_user_id, :reference, :description, :created_at)
		RETURNING seq
	`
	rows, err := sqlx.NamedQueryContext(ctx, q.db, query, entry)
	if err != nil {
		return fmt.Errorf("account repository: append ledger entry: %w", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&entry.Seq); err != nil {
			return fmt.Errorf("account repository: scan ledger seq: %w", err)
		}
	}
	return rows.Err()
}

func (q *queries) ListLedgerEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = paging(limit, offset)
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3
	`
	entries := []models.LedgerEntry{}
	if err := sqlx.SelectContext(ctx, q.db, &entries, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("account repository: list ledger entries: %w", err)
	}
	return entries, nil
}

func (q *queries) AllLedgerEntries(ctx context.Context, userID uuid.UUID) ([]models.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE user_id = $1 ORDER BY seq`
	entries := []models.LedgerEntry{}
	if err := sqlx.SelectContext(ctx, q.db, &entries, query, userID); err != nil {
		return nil, fmt.Errorf("account repository: all ledger entries: %w", err)
	}
	return entries, nil
}

func (q *queries) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (id, user_id, amount, status, payout_method, payout_details, ledger_entry_id, created_at, processed_at)
		VALUES (:id, :user_id, :amount, :status, :payout_method, :payout_details, :ledger_entry_id, :created_at, :processed_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, q.db, query, w); err != nil {
		return fmt.Errorf("account repository: insert withdrawal: %w", err)
	}
	return nil
}

func (q *queries) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	limit, offset = paging(limit, offset)
	query := `
		SELECT id, user_id, amount, status, payout_method, payout_details, ledger_entry_id, created_at, processed_at
		FROM withdrawals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	withdrawals := []models.Withdrawal{}
	if err := sqlx.SelectContext(ctx, q.db, &withdrawals, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("account repository: list withdrawals: %w", err)
	}
	return withdrawals, nil
}
