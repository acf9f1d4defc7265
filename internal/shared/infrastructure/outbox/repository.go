package outbox

import (
	"context"
	"time"
)

// Repository defines the interface for outbox persistence.
// SaveBatch joins the transaction carried by ctx.
type Repository interface {
	SaveBatch(ctx context.Context, msgs []*Message) error

	// Pending returns unpublished, live messages whose retry time has come,
	// oldest first.
	Pending(ctx context.Context, now time.Time, limit int) ([]*Message, error)

	MarkPublished(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error
	MarkDead(ctx context.Context, id int64, reason string, at time.Time) error

	// Purge deletes messages published before the cutoff.
	Purge(ctx context.Context, publishedBefore time.Time) (int64, error)
}
