package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type txContextKey struct{}

// WithTx attaches tx to ctx so stores can join the caller's transaction.
// A nil tx returns ctx unchanged.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction stored by WithTx.
func TxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txContextKey{}).(pgx.Tx)
	return tx, ok
}
