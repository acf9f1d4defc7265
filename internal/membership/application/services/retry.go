package services

import (
	"context"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	sharedApplication "github.com/felixgeelhaar/hearth/internal/shared/application"
)

// RetryOnConflict re-runs fn while it fails with
// ErrConcurrentAssignmentConflict. Services never retry on their own; each
// call of fn runs a whole operation in a fresh transaction.
func RetryOnConflict(ctx context.Context, policy sharedApplication.RetryPolicy, fn func(ctx context.Context) error) error {
	return sharedApplication.Retry(ctx, policy, domain.IsConflict, fn)
}
