package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/felixgeelhaar/hearth/internal/shared/infrastructure/database"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository on SQLite.
type SQLiteRepository struct {
	conn database.Connection
}

// NewSQLiteRepository creates a new SQLite outbox repository.
func NewSQLiteRepository(conn database.Connection) *SQLiteRepository {
	return &SQLiteRepository{conn: conn}
}

const sqliteOutboxColumns = `id, event_id, aggregate_type, aggregate_id, event_type, routing_key,
	payload, metadata, created_at, published_at, next_retry_at, retry_count,
	last_error, dead_lettered_at, dead_letter_reason`

// SaveBatch stores messages and assigns their IDs.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, msgs []*Message) error {
	exec := database.ExecutorFromContext(ctx, r.conn)
	for _, msg := range msgs {
		err := exec.QueryRow(ctx, `
			INSERT INTO outbox (
				event_id, aggregate_type, aggregate_id, event_type, routing_key,
				payload, metadata, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			msg.EventID.String(),
			msg.AggregateType,
			msg.AggregateID.String(),
			msg.EventType,
			msg.RoutingKey,
			string(msg.Payload),
			string(msg.Metadata),
			database.FormatTime(msg.CreatedAt),
		).Scan(&msg.ID)
		if err != nil {
			return fmt.Errorf("insert outbox message %s: %w", msg.EventID, err)
		}
	}
	return nil
}

// Pending returns messages ready for publishing.
func (r *SQLiteRepository) Pending(ctx context.Context, now time.Time, limit int) ([]*Message, error) {
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT `+sqliteOutboxColumns+`
		FROM outbox
		WHERE published_at IS NULL
		  AND dead_lettered_at IS NULL
		  AND (next_retry_at IS NULL OR next_retry_at <= ?)
		ORDER BY id
		LIMIT ?`,
		database.FormatTime(now), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending outbox: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		msg, err := scanSQLiteMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (r *SQLiteRepository) MarkPublished(ctx context.Context, id int64, at time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE outbox SET published_at = ?, next_retry_at = NULL WHERE id = ?`,
		database.FormatTime(at), id)
	if err != nil {
		return fmt.Errorf("mark outbox %d published: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, next_retry_at = ? WHERE id = ?`,
		errMsg, database.FormatTime(nextRetryAt), id)
	if err != nil {
		return fmt.Errorf("mark outbox %d failed: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkDead(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`UPDATE outbox SET retry_count = retry_count + 1, last_error = ?, dead_lettered_at = ?, dead_letter_reason = ? WHERE id = ?`,
		reason, database.FormatTime(at), reason, id)
	if err != nil {
		return fmt.Errorf("mark outbox %d dead: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) Purge(ctx context.Context, publishedBefore time.Time) (int64, error) {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx,
		`DELETE FROM outbox WHERE published_at IS NOT NULL AND published_at < ?`,
		database.FormatTime(publishedBefore))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return result.RowsAffected()
}

func scanSQLiteMessage(row database.Row) (*Message, error) {
	var (
		msg                                      Message
		eventID, aggregateID, payload, metadata  string
		createdAt                                string
		publishedAt, nextRetryAt, deadLetteredAt sql.NullString
		lastError, deadLetterReason              sql.NullString
	)
	if err := row.Scan(
		&msg.ID, &eventID, &msg.AggregateType, &aggregateID, &msg.EventType, &msg.RoutingKey,
		&payload, &metadata, &createdAt, &publishedAt, &nextRetryAt, &msg.RetryCount,
		&lastError, &deadLetteredAt, &deadLetterReason,
	); err != nil {
		return nil, fmt.Errorf("scan outbox message: %w", err)
	}

	var err error
	if msg.EventID, err = uuid.Parse(eventID); err != nil {
		return nil, fmt.Errorf("parse outbox event id: %w", err)
	}
	if msg.AggregateID, err = uuid.Parse(aggregateID); err != nil {
		return nil, fmt.Errorf("parse outbox aggregate id: %w", err)
	}
	if msg.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if msg.PublishedAt, err = database.ParseNullTime(publishedAt); err != nil {
		return nil, err
	}
	if msg.NextRetryAt, err = database.ParseNullTime(nextRetryAt); err != nil {
		return nil, err
	}
	if msg.DeadLetteredAt, err = database.ParseNullTime(deadLetteredAt); err != nil {
		return nil, err
	}
	msg.Payload = []byte(payload)
	msg.Metadata = []byte(metadata)
	if lastError.Valid {
		msg.LastError = &lastError.String
	}
	if deadLetterReason.Valid {
		msg.DeadLetterReason = &deadLetterReason.String
	}
	return &msg, nil
}
