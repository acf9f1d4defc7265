package application

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/felixgeelhaar/hearth/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventMetadata(t *testing.T) {
	t.Run("uses correlation id from context", func(t *testing.T) {
		actor := uuid.New()
		ctx := observability.WithCorrelationID(context.Background(), "corr-42")

		metadata := NewEventMetadata(ctx, actor)

		assert.Equal(t, actor, metadata.ActorID)
		assert.Equal(t, "corr-42", metadata.CorrelationID)
		assert.NotEqual(t, uuid.Nil, metadata.CausationID)
	})

	t.Run("generates correlation id when missing", func(t *testing.T) {
		first := NewEventMetadata(context.Background(), uuid.Nil)
		second := NewEventMetadata(context.Background(), uuid.Nil)

		require.NotEmpty(t, first.CorrelationID)
		assert.NotEqual(t, first.CorrelationID, second.CorrelationID)
	})
}

func TestActorContext(t *testing.T) {
	assert.Equal(t, uuid.Nil, ActorFromContext(context.Background()))

	actor := uuid.New()
	assert.Equal(t, actor, ActorFromContext(WithActor(context.Background(), actor)))
}

func TestApplyEventMetadata(t *testing.T) {
	first := domain.NewBaseEvent(uuid.New(), "membership", "membership.created", time.Now())
	second := domain.NewBaseEvent(uuid.New(), "membership", "membership.primary_set", time.Now())
	metadata := NewEventMetadata(context.Background(), uuid.New())

	ApplyEventMetadata([]domain.DomainEvent{&first, &second}, metadata)

	assert.Equal(t, metadata, first.Metadata())
	assert.Equal(t, metadata, second.Metadata())
}
