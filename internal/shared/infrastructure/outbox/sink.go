package outbox

import (
	"context"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
)

// Sink writes domain events to the outbox inside the caller's transaction.
// It implements application.EventSink.
type Sink struct {
	repo Repository
}

// NewSink creates a Sink over repo.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo}
}

// Append stores one outbox message per event.
func (s *Sink) Append(ctx context.Context, events ...domain.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*Message, 0, len(events))
	for _, event := range events {
		msg, err := NewMessage(event)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	return s.repo.SaveBatch(ctx, msgs)
}
