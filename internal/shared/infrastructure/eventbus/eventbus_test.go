package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/eventbus"
)

type recordingConsumer struct {
	types  []string
	events []*eventbus.ConsumedEvent
	err    error
}

func (c *recordingConsumer) EventTypes() []string { return c.types }

func (c *recordingConsumer) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	c.events = append(c.events, event)
	return c.err
}

func payloadFor(t *testing.T, eventType string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"event_id":       uuid.New(),
		"event_type":     eventType,
		"aggregate_type": "user",
		"aggregate_id":   uuid.New(),
		"occurred_at":    time.Now().UTC(),
		"data":           json.RawMessage(raw),
	})
	require.NoError(t, err)
	return body
}

func TestInProcessBus_DispatchesByEventType(t *testing.T) {
	registry := eventbus.NewRegistry(nil)
	scope := &recordingConsumer{types: []string{"user.scope_synced", "user.scope_cleared"}}
	other := &recordingConsumer{types: []string{"membership.created"}}
	registry.Register(scope)
	registry.Register(other)
	bus := eventbus.NewInProcessBus(registry, nil)

	userID := uuid.New()
	err := bus.Publish(context.Background(), "user.scope_synced", payloadFor(t, "user.scope_synced", map[string]any{"user_id": userID}))
	require.NoError(t, err)

	require.Len(t, scope.events, 1)
	assert.Empty(t, other.events)
	assert.Contains(t, string(scope.events[0].Data), userID.String())
	assert.ElementsMatch(t, []string{"user.scope_synced", "user.scope_cleared", "membership.created"}, registry.EventTypes())
}

func TestInProcessBus_ReturnsConsumerFailures(t *testing.T) {
	registry := eventbus.NewRegistry(nil)
	failing := &recordingConsumer{types: []string{"user.scope_cleared"}, err: errors.New("cache down")}
	healthy := &recordingConsumer{types: []string{"user.scope_cleared"}}
	registry.Register(failing)
	registry.Register(healthy)
	bus := eventbus.NewInProcessBus(registry, nil)

	err := bus.Publish(context.Background(), "user.scope_cleared", payloadFor(t, "user.scope_cleared", map[string]any{}))

	require.Error(t, err)
	assert.Len(t, healthy.events, 1, "other consumers still run")
}

func TestInProcessBus_DropsUndecodablePayload(t *testing.T) {
	registry := eventbus.NewRegistry(nil)
	consumer := &recordingConsumer{types: []string{"user.scope_synced"}}
	registry.Register(consumer)

	err := eventbus.NewInProcessBus(registry, nil).Publish(context.Background(), "user.scope_synced", []byte("not json"))

	require.NoError(t, err)
	assert.Empty(t, consumer.events)
}

type flakyPublisher struct {
	calls atomic.Int32
	err   error
}

func (p *flakyPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.calls.Add(1)
	return p.err
}

func (p *flakyPublisher) Close() error { return nil }

func TestBreakerPublisher_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyPublisher{err: errors.New("connection refused")}
	publisher := eventbus.NewBreakerPublisher(inner, eventbus.BreakerConfig{
		ConsecutiveFailures: 2,
		OpenTimeout:         time.Minute,
		HalfOpenRequests:    1,
	}, nil)

	for i := 0; i < 2; i++ {
		err := publisher.Publish(context.Background(), "membership.created", []byte("{}"))
		require.Error(t, err)
		assert.NotErrorIs(t, err, eventbus.ErrBrokerUnavailable)
	}
	assert.Equal(t, gobreaker.StateOpen, publisher.State())

	err := publisher.Publish(context.Background(), "membership.created", []byte("{}"))
	require.ErrorIs(t, err, eventbus.ErrBrokerUnavailable)
	assert.Equal(t, int32(2), inner.calls.Load(), "open breaker does not call the broker")
}

func TestBreakerPublisher_PassesThroughSuccess(t *testing.T) {
	inner := &flakyPublisher{}
	publisher := eventbus.NewBreakerPublisher(inner, eventbus.DefaultBreakerConfig(), nil)

	require.NoError(t, publisher.Publish(context.Background(), "membership.created", []byte("{}")))
	assert.Equal(t, gobreaker.StateClosed, publisher.State())
	require.NoError(t, publisher.Close())
}
