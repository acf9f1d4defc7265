package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/google/uuid"
)

// ConsumedEvent is the decoded form of a relayed outbox payload.
type ConsumedEvent struct {
	EventID       uuid.UUID            `json:"event_id"`
	EventType     string               `json:"event_type"`
	AggregateType string               `json:"aggregate_type"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Metadata      domain.EventMetadata `json:"metadata"`
	Data          json.RawMessage      `json:"data"`
}

// EventConsumer handles specific event types.
type EventConsumer interface {
	// EventTypes returns the routing keys this consumer handles.
	EventTypes() []string
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// Registry maps routing keys to consumers.
type Registry struct {
	mu        sync.RWMutex
	consumers map[string][]EventConsumer
	logger    *slog.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{consumers: make(map[string][]EventConsumer), logger: logger}
}

// Register adds a consumer for each of its event types.
func (r *Registry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, eventType := range consumer.EventTypes() {
		r.consumers[eventType] = append(r.consumers[eventType], consumer)
	}
}

// EventTypes returns every routing key with at least one consumer.
func (r *Registry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.consumers))
	for t := range r.consumers {
		types = append(types, t)
	}
	return types
}

// Dispatch runs every consumer for the event type. All consumers run even
// when one fails; the failures are joined.
func (r *Registry) Dispatch(ctx context.Context, event *ConsumedEvent) error {
	r.mu.RLock()
	consumers := r.consumers[event.EventType]
	r.mu.RUnlock()

	var errs []error
	for _, consumer := range consumers {
		if err := consumer.Handle(ctx, event); err != nil {
			r.logger.ErrorContext(ctx, "consumer failed to handle event",
				"routing_key", event.EventType,
				"event_id", event.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// decodeEvent parses a relayed payload; routingKey fills a missing type.
func decodeEvent(routingKey string, payload []byte) (*ConsumedEvent, error) {
	event := &ConsumedEvent{}
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, err
	}
	if event.EventType == "" {
		event.EventType = routingKey
	}
	return event, nil
}
