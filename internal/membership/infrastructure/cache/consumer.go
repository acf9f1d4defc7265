package cache

import (
	"context"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/hearth/internal/membership/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/eventbus"
)

// Invalidator drops cached scopes.
type Invalidator interface {
	Invalidate(ctx context.Context, userIDs ...uuid.UUID) error
}

// InvalidationConsumer drops a user's cached scope whenever a relayed event
// reports that the scope changed. It covers writers that ran in other
// processes.
type InvalidationConsumer struct {
	cache Invalidator
}

// NewInvalidationConsumer creates a consumer over cache.
func NewInvalidationConsumer(cache Invalidator) *InvalidationConsumer {
	return &InvalidationConsumer{cache: cache}
}

// EventTypes implements eventbus.EventConsumer.
func (c *InvalidationConsumer) EventTypes() []string {
	return []string{domain.RoutingKeyUserScopeSynced, domain.RoutingKeyUserScopeCleared}
}

// Handle implements eventbus.EventConsumer. User events carry the user id
// as their aggregate id.
func (c *InvalidationConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	if event.AggregateID == uuid.Nil {
		return nil
	}
	return c.cache.Invalidate(ctx, event.AggregateID)
}
