package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/warmconnects-backend/internal/ledger"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
)

type AccountRepository interface {
	ledger.Store

	// GetAccount возвращает счёт или пустой счёт, если движений ещё не было.
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error)
	// LockAccount создаёт счёт при необходимости и блокирует его строку до конца транзакции.
	LockAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error)

	ListLedgerEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error)
	// AllLedgerEntries возвращает весь журнал пользователя в порядке записи.
	AllLedgerEntries(ctx context.Context, userID uuid.UUID) ([]models.LedgerEntry, error)

	InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error
	ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error)
}
