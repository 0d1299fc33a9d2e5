package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/warmconnects-backend/internal/config"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/domain/valueobject"
	"github.com/ignatzorin/warmconnects-backend/internal/ledger"
	"github.com/ignatzorin/warmconnects-backend/internal/logger"
	"github.com/ignatzorin/warmconnects-backend/internal/metrics"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/apperror"
	"github.com/ignatzorin/warmconnects-backend/internal/pkg/numbering"
)

// bonusTier - бонус за пополнение от порога включительно.
type bonusTier struct {
	threshold decimal.Decimal
	percent   decimal.Decimal
}

// bonusTiers отсортированы по убыванию порога.
var bonusTiers = []bonusTier{
	{threshold: decimal.NewFromInt(5000), percent: decimal.NewFromInt(15)},
	{threshold: decimal.NewFromInt(1000), percent: decimal.NewFromInt(10)},
	{threshold: decimal.NewFromInt(500), percent: decimal.NewFromInt(8)},
	{threshold: decimal.NewFromInt(100), percent: decimal.NewFromInt(5)},
}

// TopUpBonus возвращает бонус за пополнение на amount.
func TopUpBonus(amount decimal.Decimal) decimal.Decimal {
	for _, t := range bonusTiers {
		if amount.GreaterThanOrEqual(t.threshold) {
			return valueobject.PercentOf(amount, t.percent)
		}
	}
	return decimal.Zero
}

// WalletService - пополнение кредитного баланса, вывод заработка и выписки по журналу.
type WalletService struct {
	store   domainrepo.Store
	policy  config.EscrowPolicy
	refs    *numbering.Generator
	metrics *metrics.EscrowMetrics
	now     func() time.Time
}

func NewWalletService(store domainrepo.Store, policy config.EscrowPolicy, m *metrics.EscrowMetrics) *WalletService {
	return &WalletService{
		store:   store,
		policy:  policy,
		refs:    numbering.MustNew(numbering.PrefixPayment),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Balance возвращает балансы пользователя и сумму его денег в эскроу.
func (s *WalletService) Balance(ctx context.Context, userID uuid.UUID) (*models.BalanceView, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	inEscrow, err := s.store.SumHeldEscrow(ctx, userID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return &models.BalanceView{
		UserID:           userID,
		CreditBalance:    acc.CreditBalance,
		InEscrow:         inEscrow,
		PendingBalance:   acc.PendingBalance,
		AvailableBalance: acc.AvailableBalance,
	}, nil
}

// TopUp зачисляет оплаченную сумму и бонус на кредитный баланс покупателя.
// Платёж имитируется: реальный платёжный шлюз подключается отдельно.
func (s *WalletService) TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*models.TopUpResult, error) {
	amount, err := valueobject.NewPositiveAmount(amount)
	if err != nil {
		return nil, err
	}

	bonus := TopUpBonus(amount)
	reference := s.refs.Reference()
	now := s.now()

	var (
		acc     *models.Account
		entries []models.LedgerEntry
	)
	err = s.store.WithinTx(ctx, func(tx domainrepo.Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return storeErr(err, apperror.ErrUserNotFound)
		}
		if !user.IsActive || !user.CanBuy() {
			return apperror.New(apperror.ErrCodeForbidden, "пополнять кредитный баланс могут только активные покупатели")
		}

		acc, err = tx.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		entries, err = ledger.Post(ctx, tx, acc, now,
			ledger.Posting{
				Field:       models.BalanceCredit,
				Type:        models.EntryTypeCreditPurchase,
				Amount:      amount,
				Reference:   &reference,
				Description: "Пополнение баланса",
			},
			ledger.Posting{
				Field:       models.BalanceCredit,
				Type:        models.EntryTypeBonus,
				Amount:      bonus,
				Reference:   &reference,
				Description: "Бонус за пополнение",
			},
		)
		return err
	})
	if err != nil {
		err = storeErr(err, nil)
		s.metrics.RecordError("top_up", string(apperror.CodeOf(err)))
		return nil, err
	}

	s.recordPostings(entries)
	logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"amount":    amount.String(),
		"bonus":     bonus.String(),
		"reference": reference,
	}).Info("кредитный баланс пополнен")

	return &models.TopUpResult{
		Amount:           amount,
		Bonus:            bonus,
		PaymentReference: reference,
		Balance:          acc.CreditBalance,
	}, nil
}

// WithdrawInput - заявка продавца на вывод.
type WithdrawInput struct {
	UserID        uuid.UUID
	Amount        decimal.Decimal
	PayoutMethod  string
	PayoutDetails *string
}

// Withdraw списывает сумму с доступного баланса продавца и создаёт заявку на выплату.
func (s *WalletService) Withdraw(ctx context.Context, in WithdrawInput) (*models.Withdrawal, error) {
	amount, err := valueobject.NewPositiveAmount(in.Amount)
	if err != nil {
		return nil, err
	}
	if amount.LessThan(s.policy.MinWithdrawal) {
		return nil, apperror.Newf(apperror.ErrCodePolicyViolation,
			"минимальная сумма вывода %s", s.policy.MinWithdrawal.StringFixed(valueobject.MoneyPlaces))
	}
	method := strings.TrimSpace(in.PayoutMethod)
	if method == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "способ выплаты обязателен")
	}

	now := s.now()
	var (
		withdrawal *models.Withdrawal
		entries    []models.LedgerEntry
	)
	err = s.store.WithinTx(ctx, func(tx domainrepo.Tx) error {
		user, err := tx.GetUser(ctx, in.UserID)
		if err != nil {
			return storeErr(err, apperror.ErrUserNotFound)
		}
		if !user.CanSell() {
			return apperror.New(apperror.ErrCodeForbidden, "выводить заработок могут только продавцы")
		}

		acc, err := tx.LockAccount(ctx, in.UserID)
		if err != nil {
			return err
		}
		if amount.GreaterThan(acc.AvailableBalance) {
			return apperror.ErrInsufficientFunds
		}
		entries, err = ledger.Post(ctx, tx, acc, now, ledger.Posting{
			Field:       models.BalanceAvailable,
			Type:        models.EntryTypeWithdrawal,
			Amount:      amount.Neg(),
			Description: "Вывод средств: " + method,
		})
		if err != nil {
			return err
		}

		withdrawal = &models.Withdrawal{
			ID:            uuid.New(),
			UserID:        in.UserID,
			Amount:        amount,
			Status:        models.WithdrawalStatusPending,
			PayoutMethod:  method,
			PayoutDetails: in.PayoutDetails,
			LedgerEntryID: entries[0].ID,
			CreatedAt:     now,
		}
		return tx.InsertWithdrawal(ctx, withdrawal)
	})
	if err != nil {
		err = storeErr(err, nil)
		s.metrics.RecordError("withdraw", string(apperror.CodeOf(err)))
		return nil, err
	}

	s.recordPostings(entries)
	logger.WithFields(logrus.Fields{
		"user_id":       in.UserID,
		"withdrawal_id": withdrawal.ID,
		"amount":        amount.String(),
	}).Info("создана заявка на вывод")
	return withdrawal, nil
}

// Transactions возвращает записи журнала пользователя, новые первыми.
func (s *WalletService) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	limit, offset = normalizePaging(limit, offset)
	entries, err := s.store.ListLedgerEntries(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return entries, nil
}

func (s *WalletService) Withdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	limit, offset = normalizePaging(limit, offset)
	withdrawals, err := s.store.ListWithdrawals(ctx, userID, limit, offset)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return withdrawals, nil
}

// LedgerReport - результат сверки счёта с журналом.
type LedgerReport struct {
	UserID     uuid.UUID       `json:"user_id"`
	Entries    int             `json:"entries"`
	Consistent bool            `json:"consistent"`
	Problem    string          `json:"problem,omitempty"`
	Account    *models.Account `json:"account"`
}

// VerifyLedger воспроизводит журнал пользователя и сверяет результат с балансами счёта.
func (s *WalletService) VerifyLedger(ctx context.Context, userID uuid.UUID) (*LedgerReport, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, storeErr(err, nil)
	}
	entries, err := s.store.AllLedgerEntries(ctx, userID)
	if err != nil {
		return nil, storeErr(err, nil)
	}

	report := &LedgerReport{UserID: userID, Entries: len(entries), Consistent: true, Account: acc}
	if err := ledger.Verify(acc, entries); err != nil {
		report.Consistent = false
		report.Problem = err.Error()
		logger.WithFields(logrus.Fields{"user_id": userID}).WithError(err).Error("журнал не сходится с балансом")
	}
	return report, nil
}

func (s *WalletService) recordPostings(entries []models.LedgerEntry) {
	for _, e := range entries {
		s.metrics.RecordPostings(e.Type)
	}
}
