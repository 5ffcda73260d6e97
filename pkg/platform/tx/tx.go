// Package tx carries the active unit of work in a context so nested callers
// can join it instead of opening a second one.
package tx

import (
	"context"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores the transaction handle in context for downstream store usage.
func WithTx(ctx context.Context, tx any) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts the transaction handle from context if present and of type T.
func From[T any](ctx context.Context) (T, bool) {
	tx, ok := ctx.Value(txKey).(T)
	return tx, ok
}
