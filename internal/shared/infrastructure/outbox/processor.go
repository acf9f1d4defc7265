package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/hearth/pkg/observability"
)

// ProcessorConfig holds configuration for the outbox processor.
type ProcessorConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	RetryBackoffBase time.Duration
	RetryBackoffMax  time.Duration
}

// DefaultProcessorConfig returns the relay defaults.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:     500 * time.Millisecond,
		BatchSize:        100,
		MaxRetries:       5,
		RetryBackoffBase: time.Second,
		RetryBackoffMax:  time.Minute,
	}
}

// Processor polls the outbox and relays messages to the broker.
type Processor struct {
	repo      Repository
	publisher eventbus.Publisher
	config    ProcessorConfig
	logger    *slog.Logger
	metrics   observability.Metrics
	clock     domain.Clock

	wg       sync.WaitGroup
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// ProcessorOption customizes a Processor.
type ProcessorOption func(*Processor)

// WithMetrics records relay counters on m.
func WithMetrics(m observability.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithClock overrides the processor's time source.
func WithClock(c domain.Clock) ProcessorOption {
	return func(p *Processor) { p.clock = c }
}

// NewProcessor creates a new outbox processor.
func NewProcessor(repo Repository, publisher eventbus.Publisher, config ProcessorConfig, logger *slog.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		repo:      repo,
		publisher: publisher,
		config:    config,
		logger:    logger,
		metrics:   observability.NoopMetrics{},
		clock:     domain.SystemClock,
		stopChan:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins the polling loop in a goroutine.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopChan = make(chan struct{})
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(ctx)

	p.logger.Info("outbox processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize,
	)
	return nil
}

// Stop stops the loop and waits for the in-flight batch.
func (p *Processor) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("outbox processor stopped")
}

// IsRunning returns true if the processor is running.
func (p *Processor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				p.logger.Error("failed to process outbox batch", "error", err)
			}
		}
	}
}

// ProcessOnce relays a single batch synchronously.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	return p.processBatch(ctx)
}

func (p *Processor) processBatch(ctx context.Context) error {
	now := p.clock.Now()
	messages, err := p.repo.Pending(ctx, now, p.config.BatchSize)
	if err != nil {
		p.recordError(err)
		return err
	}
	p.recordProcessed(now, messages)

	for _, msg := range messages {
		if err := p.publisher.Publish(ctx, msg.RoutingKey, msg.Payload); err != nil {
			p.handleFailure(ctx, msg, err)
			continue
		}

		if err := p.repo.MarkPublished(ctx, msg.ID, p.clock.Now()); err != nil {
			p.logger.Error("failed to mark message as published",
				"id", msg.ID,
				"event_id", msg.EventID,
				"error", err,
			)
			continue
		}
		p.recordPublished()
		p.metrics.Counter(observability.MetricOutboxMessages, 1, observability.T("outcome", "published"))
	}
	return nil
}

func (p *Processor) handleFailure(ctx context.Context, msg *Message, err error) {
	meta := decodeMetadata(msg)
	p.logger.Warn("failed to publish message",
		"id", msg.ID,
		"routing_key", msg.RoutingKey,
		"event_id", msg.EventID,
		observability.CorrelationIDKey, meta.CorrelationID,
		"actor_id", meta.ActorID,
		"error", err,
	)

	if p.shouldDeadLetter(msg) {
		p.recordFailure(err, true)
		p.metrics.Counter(observability.MetricOutboxMessages, 1, observability.T("outcome", "dead"))
		if markErr := p.repo.MarkDead(ctx, msg.ID, err.Error(), p.clock.Now()); markErr != nil {
			p.logger.Error("failed to mark message as dead-lettered", "id", msg.ID, "error", markErr)
		}
		return
	}

	p.recordFailure(err, false)
	p.metrics.Counter(observability.MetricOutboxMessages, 1, observability.T("outcome", "failed"))
	next := p.clock.Now().Add(p.retryBackoff(msg.RetryCount + 1))
	if markErr := p.repo.MarkFailed(ctx, msg.ID, err.Error(), next); markErr != nil {
		p.logger.Error("failed to mark message as failed", "id", msg.ID, "error", markErr)
	}
}

func (p *Processor) shouldDeadLetter(msg *Message) bool {
	if p.config.MaxRetries <= 0 {
		return true
	}
	return msg.RetryCount+1 >= p.config.MaxRetries
}

// retryBackoff doubles from RetryBackoffBase per attempt, capped at RetryBackoffMax.
func (p *Processor) retryBackoff(attempt int) time.Duration {
	base := p.config.RetryBackoffBase
	if base <= 0 {
		base = time.Second
	}
	limit := p.config.RetryBackoffMax
	if limit <= 0 {
		limit = time.Minute
	}

	backoff := base
	for i := 1; i < attempt && backoff < limit; i++ {
		backoff *= 2
	}
	return min(backoff, limit)
}

func decodeMetadata(msg *Message) domain.EventMetadata {
	var meta domain.EventMetadata
	if len(msg.Metadata) > 0 {
		_ = json.Unmarshal(msg.Metadata, &meta)
	}
	return meta
}

// Stats is a snapshot of relay progress.
type Stats struct {
	IsRunning       bool
	PublishedCount  uint64
	FailedCount     uint64
	DeadCount       uint64
	LagSeconds      float64
	LastError       string
	LastErrorAt     *time.Time
	LastProcessedAt *time.Time
	OldestMessageAt *time.Time
}

// GetStats returns current processor statistics.
func (p *Processor) GetStats() Stats {
	running := p.IsRunning()

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	stats := p.stats
	stats.IsRunning = running
	return stats
}

func (p *Processor) recordPublished() {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.PublishedCount++
}

func (p *Processor) recordFailure(err error, dead bool) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if dead {
		p.stats.DeadCount++
	} else {
		p.stats.FailedCount++
	}
	now := p.clock.Now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordError(err error) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	now := p.clock.Now()
	p.stats.LastError = err.Error()
	p.stats.LastErrorAt = &now
}

func (p *Processor) recordProcessed(now time.Time, messages []*Message) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.LastProcessedAt = &now
	if len(messages) == 0 {
		p.stats.LagSeconds = 0
		p.stats.OldestMessageAt = nil
		return
	}

	oldest := messages[0].CreatedAt
	for _, msg := range messages[1:] {
		if msg.CreatedAt.Before(oldest) {
			oldest = msg.CreatedAt
		}
	}
	p.stats.OldestMessageAt = &oldest
	p.stats.LagSeconds = now.Sub(oldest).Seconds()
	p.metrics.Gauge(observability.MetricOutboxLag, p.stats.LagSeconds)
}
