package eventbus

import "context"

// Publisher sends relayed outbox payloads to a message broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}
