package repository

import (
	"context"
	"errors"
)

// Ошибки уровня хранилища.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrDuplicate       = errors.New("entity already exists")
	ErrVersionConflict = errors.New("entity version conflict")
)

// Tx - все репозитории, работающие в одной транзакции.
type Tx interface {
	OrderRepository
	DisputeRepository
	AccountRepository
	DirectoryRepository
	JobRepository
}

// Store - репозитории вне транзакции плюс запуск транзакции.
// Если fn возвращает ошибку, все изменения откатываются.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
