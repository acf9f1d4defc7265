package application

import (
	"context"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/felixgeelhaar/hearth/pkg/observability"
	"github.com/google/uuid"
)

type actorKey struct{}

// WithActor records the authenticated caller on ctx. Events recorded during
// the request carry it as their actor.
func WithActor(ctx context.Context, actorID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the caller recorded by WithActor, or uuid.Nil.
func ActorFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(actorKey{}).(uuid.UUID)
	return id
}

type metadataSetter interface {
	SetMetadata(metadata domain.EventMetadata)
}

// NewEventMetadata creates operation-scoped metadata for domain events.
// The correlation id is taken from ctx when present.
func NewEventMetadata(ctx context.Context, actorID uuid.UUID) domain.EventMetadata {
	correlationID := observability.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return domain.EventMetadata{
		CorrelationID: correlationID,
		CausationID:   uuid.New(),
		ActorID:       actorID,
	}
}

// ApplyEventMetadata sets metadata on all events that support it.
func ApplyEventMetadata(events []domain.DomainEvent, metadata domain.EventMetadata) {
	for _, event := range events {
		if setter, ok := event.(metadataSetter); ok {
			setter.SetMetadata(metadata)
		}
	}
}

// EventSink receives domain events inside the caller's transaction.
type EventSink interface {
	Append(ctx context.Context, events ...domain.DomainEvent) error
}

// DiscardEvents is an EventSink that drops everything.
type DiscardEvents struct{}

// Append implements EventSink.
func (DiscardEvents) Append(context.Context, ...domain.DomainEvent) error { return nil }
