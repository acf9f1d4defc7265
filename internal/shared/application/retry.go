package application

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how a caller re-runs an operation that lost a race.
type RetryPolicy struct {
	Attempts uint64
	Base     time.Duration
}

// DefaultRetryPolicy returns three retries starting at 25ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Base: 25 * time.Millisecond}
}

// Retry runs fn and re-runs it with exponential backoff while retryable
// reports true for the returned error. Other errors return immediately.
// Every attempt must open its own unit of work.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	base := policy.Base
	if base <= 0 {
		base = 25 * time.Millisecond
	}
	backoff := retry.WithJitterPercent(20, retry.WithMaxRetries(policy.Attempts, retry.NewExponential(base)))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
