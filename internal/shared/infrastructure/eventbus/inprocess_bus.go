package eventbus

import (
	"context"
	"log/slog"
)

// InProcessBus is the local-mode Publisher: the outbox relay hands each
// message straight to registered consumers instead of a broker.
type InProcessBus struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInProcessBus creates a bus dispatching to registry.
func NewInProcessBus(registry *Registry, logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{registry: registry, logger: logger}
}

// Publish decodes the payload and dispatches it synchronously. Undecodable
// payloads are dropped; consumer failures are returned so the outbox retries.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	event, err := decodeEvent(routingKey, payload)
	if err != nil {
		b.logger.ErrorContext(ctx, "dropping undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	return b.registry.Dispatch(ctx, event)
}

func (b *InProcessBus) Close() error { return nil }
