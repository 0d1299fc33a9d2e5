package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ignatzorin/warmconnects-backend/internal/domain/entity"
	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/models"
)

// memStore - хранилище в памяти с семантикой транзакций: fn работает с копией данных,
// и копия становится текущим состоянием только если fn не вернул ошибку.
// Транзакции выполняются строго по одной, как при блокировке строк.
type memStore struct {
	mu sync.Mutex
	*memData
}

var _ domainrepo.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{memData: &memData{
		users:    make(map[uuid.UUID]models.User),
		services: make(map[uuid.UUID]models.ServiceListing),
		orders:   make(map[uuid.UUID]entity.Order),
		disputes: make(map[uuid.UUID]entity.Dispute),
		accounts: make(map[uuid.UUID]models.Account),
		jobs:     make(map[string]models.ScheduledJob),
		failures: make(map[string]error),
	}}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx domainrepo.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.memData.clone()
	if err := fn(work); err != nil {
		return err
	}
	s.memData = work
	return nil
}

// failOn заставляет метод хранилища возвращать err.
func (s *memStore) failOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = err
}

func (s *memStore) snapshot() *memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memData.clone()
}

type memData struct {
	users       map[uuid.UUID]models.User
	services    map[uuid.UUID]models.ServiceListing
	orders      map[uuid.UUID]entity.Order
	revisions   []entity.RevisionRequest
	disputes    map[uuid.UUID]entity.Dispute
	accounts    map[uuid.UUID]models.Account
	entries     []models.LedgerEntry
	withdrawals []models.Withdrawal
	jobs        map[string]models.ScheduledJob
	seq         int64
	failures    map[string]error
}

func (d *memData) clone() *memData {
	c := &memData{
		users:       make(map[uuid.UUID]models.User, len(d.users)),
		services:    make(map[uuid.UUID]models.ServiceListing, len(d.services)),
		orders:      make(map[uuid.UUID]entity.Order, len(d.orders)),
		revisions:   append([]entity.RevisionRequest(nil), d.revisions...),
		disputes:    make(map[uuid.UUID]entity.Dispute, len(d.disputes)),
		accounts:    make(map[uuid.UUID]models.Account, len(d.accounts)),
		entries:     append([]models.LedgerEntry(nil), d.entries...),
		withdrawals: append([]models.Withdrawal(nil), d.withdrawals...),
		jobs:        make(map[string]models.ScheduledJob, len(d.jobs)),
		seq:         d.seq,
		failures:    d.failures,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.services {
		c.services[k] = v
	}
	for k, v := range d.orders {
		c.orders[k] = v
	}
	for k, v := range d.disputes {
		c.disputes[k] = v
	}
	for k, v := range d.accounts {
		c.accounts[k] = v
	}
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	return c
}

func (d *memData) failure(method string) error {
	return d.failures[method]
}

func (d *memData) GetOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	if err := d.failure("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := d.orders[id]
	if !ok {
		return nil, domainrepo.ErrNotFound
	}
	o.Revisions = nil
	return &o, nil
}

func (d *memData) LockOrder(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	return d.GetOrder(ctx, id)
}

func (d *memData) InsertOrder(ctx context.Context, order *entity.Order) error {
	if err := d.failure("InsertOrder"); err != nil {
		return err
	}
	for _, o := range d.orders {
		if o.OrderNumber == order.OrderNumber || o.ID == order.ID {
			return domainrepo.ErrDuplicate
		}
	}
	d.orders[order.ID] = *order
	return nil
}

func (d *memData) UpdateOrder(ctx context.Context, order *entity.Order) error {
	if err := d.failure("UpdateOrder"); err != nil {
		return err
	}
	stored, ok := d.orders[order.ID]
	if !ok || stored.Version != order.Version {
		return domainrepo.ErrVersionConflict
	}
	if order.EscrowAmount.IsNegative() {
		return fmt.Errorf("orders: escrow_amount check violated")
	}
	order.Version++
	d.orders[order.ID] = *order
	return nil
}

func (d *memData) ListOrders(ctx context.Context, filter domainrepo.OrderFilter) ([]entity.Order, error) {
	out := []entity.Order{}
	for _, o := range d.orders {
		if filter.BuyerID != nil && o.BuyerID != *filter.BuyerID {
			continue
		}
		if filter.SellerID != nil && o.SellerID != *filter.SellerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Limit, filter.Offset), nil
}

func (d *memData) InsertRevision(ctx context.Context, rev *entity.RevisionRequest) error {
	d.revisions = append(d.revisions, *rev)
	return nil
}

func (d *memData) ListRevisions(ctx context.Context, orderID uuid.UUID) ([]entity.RevisionRequest, error) {
	out := []entity.RevisionRequest{}
	for _, r := range d.revisions {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (d *memData) SumHeldEscrow(ctx context.Context, buyerID uuid.UUID) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, o := range d.orders {
		if o.BuyerID == buyerID && o.EscrowStatus.IsHeld() {
			sum = sum.Add(o.EscrowAmount)
		}
	}
	return sum, nil
}

func (d *memData) GetDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	disp, ok := d.disputes[id]
	if !ok {
		return nil, domainrepo.ErrNotFound
	}
	return &disp, nil
}

func (d *memData) LockDispute(ctx context.Context, id uuid.UUID) (*entity.Dispute, error) {
	return d.GetDispute(ctx, id)
}

func (d *memData) GetDisputeByOrder(ctx context.Context, orderID uuid.UUID) (*entity.Dispute, error) {
	for _, disp := range d.disputes {
		if disp.OrderID == orderID {
			return &disp, nil
		}
	}
	return nil, domainrepo.ErrNotFound
}

func (d *memData) InsertDispute(ctx context.Context, dispute *entity.Dispute) error {
	for _, disp := range d.disputes {
		if disp.OrderID == dispute.OrderID || disp.DisputeNumber == dispute.DisputeNumber {
			return domainrepo.ErrDuplicate
		}
	}
	d.disputes[dispute.ID] = *dispute
	return nil
}

func (d *memData) UpdateDispute(ctx context.Context, dispute *entity.Dispute) error {
	stored, ok := d.disputes[dispute.ID]
	if !ok || stored.Version != dispute.Version {
		return domainrepo.ErrVersionConflict
	}
	dispute.Version++
	d.disputes[dispute.ID] = *dispute
	return nil
}

func (d *memData) ListDisputesForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]entity.Dispute, error) {
	out := []entity.Dispute{}
	for _, disp := range d.disputes {
		if disp.IsParty(userID) {
			out = append(out, disp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (d *memData) GetAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	acc, ok := d.accounts[userID]
	if !ok {
		return models.NewAccount(userID, time.Time{}), nil
	}
	return &acc, nil
}

func (d *memData) LockAccount(ctx context.Context, userID uuid.UUID) (*models.Account, error) {
	if _, ok := d.accounts[userID]; !ok {
		d.accounts[userID] = *models.NewAccount(userID, time.Time{})
	}
	acc := d.accounts[userID]
	return &acc, nil
}

func (d *memData) UpdateAccount(ctx context.Context, acc *models.Account) error {
	if err := d.failure("UpdateAccount"); err != nil {
		return err
	}
	stored, ok := d.accounts[acc.UserID]
	if !ok || stored.Version != acc.Version {
		return domainrepo.ErrVersionConflict
	}
	for _, f := range models.BalanceFields {
		if acc.Balance(f).IsNegative() {
			return fmt.Errorf("accounts: %s balance check violated", f)
		}
	}
	acc.Version++
	d.accounts[acc.UserID] = *acc
	return nil
}

func (d *memData) AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if err := d.failure("AppendLedgerEntry"); err != nil {
		return err
	}
	if !entry.BalanceAfter.Equal(entry.BalanceBefore.Add(entry.Amount)) || entry.BalanceAfter.IsNegative() {
		return fmt.Errorf("ledger_entries: chain check violated")
	}
	d.seq++
	entry.Seq = d.seq
	d.entries = append(d.entries, *entry)
	return nil
}

func (d *memData) ListLedgerEntries(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.LedgerEntry, error) {
	out := []models.LedgerEntry{}
	for i := len(d.entries) - 1; i >= 0; i-- {
		if d.entries[i].UserID == userID {
			out = append(out, d.entries[i])
		}
	}
	return page(out, limit, offset), nil
}

func (d *memData) AllLedgerEntries(ctx context.Context, userID uuid.UUID) ([]models.LedgerEntry, error) {
	out := []models.LedgerEntry{}
	for _, e := range d.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *memData) InsertWithdrawal(ctx context.Context, w *models.Withdrawal) error {
	d.withdrawals = append(d.withdrawals, *w)
	return nil
}

func (d *memData) ListWithdrawals(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Withdrawal, error) {
	out := []models.Withdrawal{}
	for i := len(d.withdrawals) - 1; i >= 0; i-- {
		if d.withdrawals[i].UserID == userID {
			out = append(out, d.withdrawals[i])
		}
	}
	return page(out, limit, offset), nil
}

func (d *memData) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, domainrepo.ErrNotFound
	}
	return &u, nil
}

func (d *memData) LockUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return d.GetUser(ctx, id)
}

func (d *memData) UpdateSellerStats(ctx context.Context, user *models.User) error {
	if _, ok := d.users[user.ID]; !ok {
		return domainrepo.ErrNotFound
	}
	d.users[user.ID] = *user
	return nil
}

func (d *memData) GetService(ctx context.Context, id uuid.UUID) (*models.ServiceListing, error) {
	svc, ok := d.services[id]
	if !ok {
		return nil, domainrepo.ErrNotFound
	}
	return &svc, nil
}

func (d *memData) EnqueueJob(ctx context.Context, job *models.ScheduledJob) error {
	if _, ok := d.jobs[job.DedupeKey]; ok {
		return nil
	}
	d.jobs[job.DedupeKey] = *job
	return nil
}

func (d *memData) DueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	out := []models.ScheduledJob{}
	for _, j := range d.jobs {
		if j.Status == models.JobStatusPending && !j.RunAt.After(now) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (d *memData) MarkJobDone(ctx context.Context, id uuid.UUID, now time.Time) error {
	return d.updateJob(id, func(j *models.ScheduledJob) {
		j.Status = models.JobStatusDone
		j.Attempts++
		j.UpdatedAt = now
	})
}

func (d *memData) MarkJobFailed(ctx context.Context, id uuid.UUID, lastErr string, retryAt time.Time, final bool, now time.Time) error {
	return d.updateJob(id, func(j *models.ScheduledJob) {
		j.Attempts++
		j.LastError = &lastErr
		j.RunAt = retryAt
		j.UpdatedAt = now
		if final {
			j.Status = models.JobStatusFailed
		}
	})
}

func (d *memData) updateJob(id uuid.UUID, fn func(*models.ScheduledJob)) error {
	for k, j := range d.jobs {
		if j.ID == id {
			fn(&j)
			d.jobs[k] = j
			return nil
		}
	}
	return domainrepo.ErrNotFound
}

func (d *memData) jobsFor(orderID uuid.UUID, jobType string) []models.ScheduledJob {
	out := []models.ScheduledJob{}
	for _, j := range d.jobs {
		if j.OrderID == orderID && j.Type == jobType {
			out = append(out, j)
		}
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
