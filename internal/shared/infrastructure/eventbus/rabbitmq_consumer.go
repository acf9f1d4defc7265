package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQConsumerConfig configures the RabbitMQ consumer.
type RabbitMQConsumerConfig struct {
	URL       string
	QueueName string
	Exchange  string
	Logger    *slog.Logger
}

// RabbitMQConsumer binds a durable queue to the registry's routing keys
// and dispatches deliveries to it.
type RabbitMQConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	registry *Registry
	logger   *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewRabbitMQConsumer declares the queue and binds every event type already
// registered in registry.
func NewRabbitMQConsumer(cfg RabbitMQConsumerConfig, registry *Registry) (*RabbitMQConsumer, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.QueueName == "" {
		return nil, errors.New("queue name is required")
	}
	if cfg.Exchange == "" {
		cfg.Exchange = ExchangeName
	}

	conn, ch, err := dialExchange(cfg.URL, cfg.Exchange)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*RabbitMQConsumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if _, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		return fail(fmt.Errorf("declare queue %s: %w", cfg.QueueName, err))
	}
	for _, routingKey := range registry.EventTypes() {
		if err := ch.QueueBind(cfg.QueueName, routingKey, cfg.Exchange, false, nil); err != nil {
			return fail(fmt.Errorf("bind %s to %s: %w", cfg.QueueName, routingKey, err))
		}
	}

	cfg.Logger.Info("RabbitMQ consumer connected", "queue", cfg.QueueName, "exchange", cfg.Exchange)
	return &RabbitMQConsumer{
		conn:     conn,
		channel:  ch,
		queue:    cfg.QueueName,
		registry: registry,
		logger:   cfg.Logger,
		closed:   make(chan struct{}),
	}, nil
}

// Start consumes until ctx is cancelled or Close is called.
func (c *RabbitMQConsumer) Start(ctx context.Context) error {
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set QoS: %w", err)
	}

	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.Info("started consuming events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.closed:
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *RabbitMQConsumer) handle(ctx context.Context, d amqp.Delivery) {
	event, err := decodeEvent(d.RoutingKey, d.Body)
	if err != nil {
		c.logger.Error("discarding undecodable delivery", "routing_key", d.RoutingKey, "error", err)
		_ = d.Ack(false)
		return
	}

	if err := c.registry.Dispatch(ctx, event); err != nil {
		if nackErr := d.Nack(false, !d.Redelivered); nackErr != nil {
			c.logger.Error("failed to nack delivery", "error", nackErr)
		}
		return
	}
	if err := d.Ack(false); err != nil {
		c.logger.Error("failed to ack delivery", "error", err)
	}
}

// Close stops Start and closes the connection.
func (c *RabbitMQConsumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if chErr := c.channel.Close(); chErr != nil {
			c.logger.Warn("error closing channel", "error", chErr)
		}
		err = c.conn.Close()
	})
	return err
}
