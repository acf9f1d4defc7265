package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/domain"
	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/outbox"
	"github.com/felixgeelhaar/hearth/pkg/observability"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryRepository is an in-memory outbox.Repository.
type memoryRepository struct {
	mu           sync.Mutex
	messages     []*outbox.Message
	publishedIDs []int64
	failedIDs    []int64
	deadIDs      []int64
	pendingErr   error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{}
}

func (r *memoryRepository) SaveBatch(ctx context.Context, msgs []*outbox.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range msgs {
		msg.ID = int64(len(r.messages) + 1)
		r.messages = append(r.messages, msg)
	}
	return nil
}

func (r *memoryRepository) Pending(ctx context.Context, now time.Time, limit int) ([]*outbox.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pendingErr != nil {
		return nil, r.pendingErr
	}

	var result []*outbox.Message
	for _, msg := range r.messages {
		if msg.PublishedAt != nil || msg.DeadLetteredAt != nil {
			continue
		}
		if msg.NextRetryAt != nil && msg.NextRetryAt.After(now) {
			continue
		}
		result = append(result, msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (r *memoryRepository) find(id int64) *outbox.Message {
	for _, msg := range r.messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

func (r *memoryRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishedIDs = append(r.publishedIDs, id)
	if msg := r.find(id); msg != nil {
		msg.PublishedAt = &at
	}
	return nil
}

func (r *memoryRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failedIDs = append(r.failedIDs, id)
	if msg := r.find(id); msg != nil {
		msg.RetryCount++
		msg.LastError = &errMsg
		msg.NextRetryAt = &nextRetryAt
	}
	return nil
}

func (r *memoryRepository) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deadIDs = append(r.deadIDs, id)
	if msg := r.find(id); msg != nil {
		msg.DeadLetteredAt = &at
		msg.DeadLetterReason = &reason
	}
	return nil
}

func (r *memoryRepository) Purge(ctx context.Context, publishedBefore time.Time) (int64, error) {
	return 0, nil
}

// recordingPublisher is a test double for eventbus.Publisher.
type recordingPublisher struct {
	mu          sync.Mutex
	published   []string
	failForKeys map[string]bool
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{failForKeys: make(map[string]bool)}
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failForKeys[routingKey] {
		return errors.New("publish failed")
	}
	p.published = append(p.published, routingKey)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) PublishedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func newTestMessage(routingKey string, createdAt time.Time) *outbox.Message {
	payload, _ := json.Marshal(map[string]string{"membership_id": uuid.NewString()})
	return &outbox.Message{
		EventID:       uuid.New(),
		AggregateType: "membership",
		AggregateID:   uuid.New(),
		EventType:     routingKey,
		RoutingKey:    routingKey,
		Payload:       payload,
		CreatedAt:     createdAt,
	}
}

func fixedClock(t time.Time) domain.Clock {
	return domain.ClockFunc(func() time.Time { return t })
}

func TestProcessor_ProcessOnce(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepository()
	publisher := newRecordingPublisher()
	metrics := observability.NewInMemoryMetrics()
	processor := outbox.NewProcessor(repo, publisher, outbox.DefaultProcessorConfig(), nil,
		outbox.WithClock(fixedClock(now)), outbox.WithMetrics(metrics))

	require.NoError(t, repo.SaveBatch(context.Background(), []*outbox.Message{
		newTestMessage("membership.created", now.Add(-2*time.Second)),
		newTestMessage("membership.primary_set", now.Add(-time.Second)),
	}))

	require.NoError(t, processor.ProcessOnce(context.Background()))

	assert.Equal(t, 2, publisher.PublishedCount())
	assert.Len(t, repo.publishedIDs, 2)
	assert.Equal(t, int64(2), metrics.GetCounter(observability.MetricOutboxMessages, observability.T("outcome", "published")))

	stats := processor.GetStats()
	assert.Equal(t, uint64(2), stats.PublishedCount)
	require.NotNil(t, stats.OldestMessageAt)
	assert.InDelta(t, 2.0, stats.LagSeconds, 0.001)
}

func TestProcessor_ProcessOnce_PublishFailureSchedulesRetry(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepository()
	publisher := newRecordingPublisher()
	publisher.failForKeys["membership.deactivated"] = true
	config := outbox.DefaultProcessorConfig()
	config.RetryBackoffBase = 2 * time.Second
	processor := outbox.NewProcessor(repo, publisher, config, nil, outbox.WithClock(fixedClock(now)))

	require.NoError(t, repo.SaveBatch(context.Background(), []*outbox.Message{
		newTestMessage("membership.created", now),
		newTestMessage("membership.deactivated", now),
	}))

	require.NoError(t, processor.ProcessOnce(context.Background()))

	assert.Equal(t, 1, publisher.PublishedCount())
	require.Len(t, repo.failedIDs, 1)
	failed := repo.messages[1]
	require.NotNil(t, failed.NextRetryAt)
	assert.Equal(t, now.Add(2*time.Second), *failed.NextRetryAt)

	stats := processor.GetStats()
	assert.Equal(t, uint64(1), stats.FailedCount)
	assert.NotNil(t, stats.LastErrorAt)

	// Not due yet: a second pass publishes nothing new.
	require.NoError(t, processor.ProcessOnce(context.Background()))
	assert.Len(t, repo.failedIDs, 1)
}

func TestProcessor_ProcessOnce_DeadLettersAfterMaxRetries(t *testing.T) {
	repo := newMemoryRepository()
	publisher := newRecordingPublisher()
	publisher.failForKeys["membership.created"] = true
	config := outbox.DefaultProcessorConfig()
	config.MaxRetries = 1
	processor := outbox.NewProcessor(repo, publisher, config, nil)

	require.NoError(t, repo.SaveBatch(context.Background(), []*outbox.Message{newTestMessage("membership.created", time.Now())}))

	require.NoError(t, processor.ProcessOnce(context.Background()))

	assert.Empty(t, repo.failedIDs)
	assert.Len(t, repo.deadIDs, 1)
	assert.Equal(t, uint64(1), processor.GetStats().DeadCount)
}

func TestProcessor_ProcessOnce_RepositoryError(t *testing.T) {
	repo := newMemoryRepository()
	repo.pendingErr = errors.New("database locked")
	processor := outbox.NewProcessor(repo, newRecordingPublisher(), outbox.DefaultProcessorConfig(), nil)

	err := processor.ProcessOnce(context.Background())

	require.Error(t, err)
	assert.Equal(t, "database locked", processor.GetStats().LastError)
}

func TestProcessor_StartStop(t *testing.T) {
	repo := newMemoryRepository()
	publisher := newRecordingPublisher()
	config := outbox.ProcessorConfig{
		PollInterval:     10 * time.Millisecond,
		BatchSize:        10,
		MaxRetries:       3,
		RetryBackoffBase: time.Millisecond,
		RetryBackoffMax:  10 * time.Millisecond,
	}
	processor := outbox.NewProcessor(repo, publisher, config, nil)

	require.NoError(t, processor.Start(context.Background()))
	require.NoError(t, processor.Start(context.Background()))
	assert.True(t, processor.GetStats().IsRunning)

	require.NoError(t, repo.SaveBatch(context.Background(), []*outbox.Message{newTestMessage("membership.created", time.Now())}))

	assert.Eventually(t, func() bool { return publisher.PublishedCount() == 1 }, time.Second, 5*time.Millisecond)

	processor.Stop()
	processor.Stop()
	assert.False(t, processor.IsRunning())
}
