// Package tx defines the transaction boundary used by domain services.
// The pgx implementation lives in infrastructure/storage/postgres.
package tx

import (
	"context"
)

// Manager runs fn in a transaction carried by ctx: committed when fn
// returns nil, rolled back otherwise. Nested calls join the outer
// transaction.
type Manager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager also runs read-only snapshot transactions, so a series of
// reads sees one consistent state.
type ReadOnlyManager interface {
	Manager
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// RunReadOnly uses m's read-only snapshot when it has one and falls back to
// a regular transaction.
func RunReadOnly(ctx context.Context, m Manager, fn func(ctx context.Context) error) error {
	if ro, ok := m.(ReadOnlyManager); ok {
		return ro.ReadOnly(ctx, fn)
	}
	return m.RunInTransaction(ctx, fn)
}
