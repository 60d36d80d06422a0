package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier represents the minimal database operations used by services.
// Both *pgxpool.Pool and pgxmock pools satisfy this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxPool is a Querier that can also open transactions. Stores that need
// the single-writer-per-trip guarantee (generator, editor, booking
// orchestrator, replan pipeline) depend on this instead of Querier.
// *pgxpool.Pool and pgxmock.PgxPoolIface both satisfy it.
type TxPool interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}
