package application

import (
	"context"
	"fmt"
)

// UnitOfWork provides transactional support for aggregating multiple operations.
//
// Begin returns a context carrying the transaction. A Begin on a context that
// already carries one joins it, and the matching Commit and Rollback are no-ops
// so only the outermost caller ends the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) (context.Context, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UnitOfWorkFunc is a function that executes within a unit of work.
type UnitOfWorkFunc func(ctx context.Context) error

// WithUnitOfWork executes fn within a unit of work.
//
// The transaction is rolled back when fn fails, panics, or when ctx is
// cancelled before the commit is issued.
func WithUnitOfWork(ctx context.Context, uow UnitOfWork, fn UnitOfWorkFunc) (err error) {
	txCtx, err := uow.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = uow.Rollback(context.WithoutCancel(txCtx))
			panic(r)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = uow.Rollback(context.WithoutCancel(txCtx))
		return err
	}

	if ctxErr := txCtx.Err(); ctxErr != nil {
		_ = uow.Rollback(context.WithoutCancel(txCtx))
		return fmt.Errorf("unit of work aborted: %w", ctxErr)
	}

	return uow.Commit(txCtx)
}
