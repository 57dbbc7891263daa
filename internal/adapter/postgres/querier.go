package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the common interface implemented by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// DB is a Querier that can open transactions. *pgxpool.Pool and
// pgxmock.PgxPoolIface both satisfy it.
type DB interface {
	Querier
	Begin(ctx context.Context) (pgx.Tx, error)
}

// unexported context key type for storing tx
type txCtxKey struct{}

// withTx puts a transaction into the context.
func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

// txFromCtx returns the transaction stored in ctx, if any.
func txFromCtx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	return tx, ok
}

// QuerierFromCtx returns the transaction from context if present,
// otherwise returns db.
func QuerierFromCtx(ctx context.Context, db DB) Querier {
	if tx, ok := txFromCtx(ctx); ok {
		return tx
	}
	return db
}
