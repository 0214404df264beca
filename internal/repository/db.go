package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrStaleStatus is returned when a ticket's status changed between load and update.
var ErrStaleStatus = errors.New("ticket status changed concurrently")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs a unit of work with repositories bound to one transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tickets TicketRepository, history TicketHistoryRepository) error) error
}

type pgxTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor builds a Transactor on top of the pool.
func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgxTransactor{pool: pool}
}

func (t *pgxTransactor) WithinTx(ctx context.Context, fn func(TicketRepository, TicketHistoryRepository) error) error {
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(NewTicketRepository(tx), NewTicketHistoryRepository(tx))
	})
}
