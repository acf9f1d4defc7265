package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
)

// PostgresRepository implements Repository on PostgreSQL.
type PostgresRepository struct {
	conn database.Connection
}

// NewPostgresRepository creates a new PostgreSQL outbox repository.
func NewPostgresRepository(conn database.Connection) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

// SaveBatch stores messages and assigns their IDs.
func (r *PostgresRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	for _, msg := range msgs {
		err := exec.QueryRow(ctx, `
			INSERT INTO outbox (
				event_id, aggregate_type, aggregate_id, event_type, routing_key,
				payload, metadata, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id`,
			msg.EventID,
			msg.AggregateType,
			msg.AggregateID,
			msg.EventType,
			msg.RoutingKey,
			[]byte(msg.Payload),
			[]byte(msg.Metadata),
			msg.CreatedAt,
		).Scan(&msg.ID)
		if err != nil {
			return fmt.Errorf("insert outbox message %s: %w", msg.EventID, err)
		}
	}
	return nil
}

// Pending returns messages ready for publishing. Rows are locked with
// SKIP LOCKED so several relays can share the table.
func (r *PostgresRepository) Pending(ctx context.Context, now time.Time, limit int) ([]*Message, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
		       payload, metadata, created_at, published_at, next_retry_at, retry_count,
		       last_error, dead_lettered_at, dead_letter_reason
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		var (
			msg               Message
			payload, metadata []byte
		)
		if err := rows.Scan(
			&msg.ID, &msg.EventID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.RoutingKey,
			&payload, &metadata, &msg.CreatedAt, &msg.PublishedAt, &msg.NextRetryAt, &msg.RetryCount,
			&msg.LastError, &msg.DeadLetteredAt, &msg.DeadLetterReason,
		); err != nil {
			return nil, fmt.Errorf("scan outbox message: %w", err)
		}
		msg.Payload = payload
		msg.Metadata = metadata
		msgs = append(msgs, &msg)
	}
	return msgs, rows.Err()
}

func (r *PostgresRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE outbox SET published_at = $1, next_retry_at = NULL WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("mark outbox %d published: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = $1, next_retry_at = $2 WHERE id = $3`,
		errMsg, nextRetryAt, id)
	if err != nil {
		return fmt.Errorf("mark outbox %d failed: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = $1, dead_lettered_at = $2, dead_letter_reason = $1 WHERE id = $3`,
		reason, at, id)
	if err != nil {
		return fmt.Errorf("mark outbox %d dead: %w", id, err)
	}
	return nil
}

func (r *PostgresRepository) Purge(ctx context.Context, publishedBefore time.Time) (int64, error) {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < $1`, publishedBefore)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return result.RowsAffected()
}
