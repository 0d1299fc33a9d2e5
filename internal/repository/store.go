package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	domainrepo "github.com/ignatzorin/warmconnects-backend/internal/domain/repository"
	"github.com/ignatzorin/warmconnects-backend/internal/repository/common"
)

// queries реализует все репозитории поверх соединения или транзакции.
type queries struct {
	db sqlx.ExtContext
}

// Store - хранилище PostgreSQL.
type Store struct {
	*queries
	conn *sqlx.DB
}

var _ domainrepo.Store = (*Store)(nil)

// NewStore создаёт хранилище поверх пула соединений.
func NewStore(conn *sqlx.DB) *Store {
	return &Store{
		queries: &queries{db: conn},
		conn:    conn,
	}
}

// WithinTx выполняет fn в транзакции. Блокировки строк, взятые через Lock*, держатся до её завершения.
func (s *Store) WithinTx(ctx context.Context, fn func(tx domainrepo.Tx) error) error {
	return common.WithTransaction(ctx, s.conn, func(tx *sqlx.Tx) error {
		return fn(&queries{db: tx})
	})
}
