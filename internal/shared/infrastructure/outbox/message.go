package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/google/uuid"
)

// Message is a domain event stored for relay to the message broker.
type Message struct {
	ID               int64
	EventID          uuid.UUID
	AggregateType    string
	AggregateID      uuid.UUID
	EventType        string
	RoutingKey       string
	Payload          json.RawMessage
	Metadata         json.RawMessage
	CreatedAt        time.Time
	PublishedAt      *time.Time
	NextRetryAt      *time.Time
	RetryCount       int
	LastError        *string
	DeadLetteredAt   *time.Time
	DeadLetterReason *string
}

// envelope is the published body: routing data plus the event's own fields.
type envelope struct {
	EventID       uuid.UUID            `json:"event_id"`
	EventType     string               `json:"event_type"`
	AggregateType string               `json:"aggregate_type"`
	AggregateID   uuid.UUID            `json:"aggregate_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
	Metadata      domain.EventMetadata `json:"metadata"`
	Data          domain.DomainEvent   `json:"data"`
}

// NewMessage creates an outbox message from a domain event.
func NewMessage(event domain.DomainEvent) (*Message, error) {
	payload, err := json.Marshal(envelope{
		EventID:       event.EventID(),
		EventType:     event.RoutingKey(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt(),
		Metadata:      event.Metadata(),
		Data:          event,
	})
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event.RoutingKey(), err)
	}

	metadata, err := json.Marshal(event.Metadata())
	if err != nil {
		return nil, fmt.Errorf("encode %s metadata: %w", event.RoutingKey(), err)
	}

	return &Message{
		EventID:       event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		EventType:     event.RoutingKey(),
		RoutingKey:    event.RoutingKey(),
		Payload:       payload,
		Metadata:      metadata,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// IsPublished returns true if the message has been published.
func (m *Message) IsPublished() bool {
	return m.PublishedAt != nil
}

// CanRetry returns true if another publish attempt is allowed.
func (m *Message) CanRetry(maxRetries int) bool {
	return m.RetryCount < maxRetries
}
