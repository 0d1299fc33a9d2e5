// Package ledger - единственное место, где меняются балансы счетов.
// Каждое изменение баланса сопровождается записью в журнале, и для каждого
// пользователя и каждого поля баланса записи образуют непрерывную цепочку:
// balance_before очередной записи равен balance_after предыдущей.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
)

// Store сохраняет изменения счёта. Вызывается внутри транзакции,
// в которой счёт уже заблокирован.
type Store interface {
	UpdateAccount(ctx context.Context, acc *models.Account) error
	AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
}

// Posting - одно изменение одного баланса.
type Posting struct {
	Field         models.BalanceField
	Type          string
	Amount        decimal.Decimal
	OrderID       *uuid.UUID
	DisputeID     *uuid.UUID
	RelatedUserID *uuid.UUID
	Reference     *string
	Description   string
}

// Post применяет проводки к счёту, сохраняет счёт и добавляет записи в журнал.
// Проводки с нулевой суммой пропускаются. Если хотя бы один баланс
// уходит в минус, ничего не сохраняется.
func Post(ctx context.Context, store Store, acc *models.Account, now time.Time, postings ...Posting) ([]models.LedgerEntry, error) {
	entries := make([]models.LedgerEntry, 0, len(postings))
	staged := *acc

	for _, p := range postings {
		if p.Amount.IsZero() {
			continue
		}
		before := staged.Balance(p.Field)
		after := before.Add(p.Amount)
		if after.IsNegative() {
			return nil, apperror.Wrap(apperror.ErrInsufficientFunds, apperror.ErrCodeInsufficientFunds,
				fmt.Sprintf("недостаточно средств: баланс %s равен %s, требуется %s", p.Field, before, p.Amount.Neg()))
		}
		staged.SetBalance(p.Field, after)

		entries = append(entries, models.LedgerEntry{
			ID:            uuid.New(),
			UserID:        acc.UserID,
			Field:         p.Field,
			Type:          p.Type,
			Amount:        p.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			OrderID:       p.OrderID,
			DisputeID:     p.DisputeID,
			RelatedUserID: p.RelatedUserID,
			Reference:     p.Reference,
			Description:   p.Description,
			CreatedAt:     now,
		})
	}

	if len(entries) == 0 {
		return nil, nil
	}

	staged.UpdatedAt = now
	if err := store.UpdateAccount(ctx, &staged); err != nil {
		return nil, fmt.Errorf("ledger: update account %s: %w", acc.UserID, err)
	}
	for i := range entries {
		if err := store.AppendLedgerEntry(ctx, &entries[i]); err != nil {
			return nil, fmt.Errorf("ledger: append entry: %w", err)
		}
	}

	*acc = staged
	return entries, nil
}

// Replay сворачивает журнал пользователя и возвращает итоговые балансы.
// Возвращает ошибку, если хотя бы одна запись нарушает цепочку.
func Replay(entries []models.LedgerEntry) (map[models.BalanceField]decimal.Decimal, error) {
	sorted := make([]models.LedgerEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	balances := make(map[models.BalanceField]decimal.Decimal, len(models.BalanceFields))
	for _, f := range models.BalanceFields {
		balances[f] = decimal.Zero
	}

	for _, e := range sorted {
		if !e.BalanceAfter.Equal(e.BalanceBefore.Add(e.Amount)) {
			return nil, fmt.Errorf("ledger: entry %s: balance_after %s != balance_before %s + amount %s",
				e.ID, e.BalanceAfter, e.BalanceBefore, e.Amount)
		}
		current := balances[e.Field]
		if !e.BalanceBefore.Equal(current) {
			return nil, fmt.Errorf("ledger: entry %s: chain broken on %s, expected balance_before %s, got %s",
				e.ID, e.Field, current, e.BalanceBefore)
		}
		balances[e.Field] = e.BalanceAfter
	}

	return balances, nil
}

// Verify сверяет счёт с его журналом.
func Verify(acc *models.Account, entries []models.LedgerEntry) error {
	balances, err := Replay(entries)
	if err != nil {
		return err
	}
	for _, f := range models.BalanceFields {
		if !balances[f].Equal(acc.Balance(f)) {
			return fmt.Errorf("ledger: account %s: %s balance %s does not match journal %s",
				acc.UserID, f, acc.Balance(f), balances[f])
		}
	}
	return nil
}
