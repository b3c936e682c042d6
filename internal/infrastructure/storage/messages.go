package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"OutageNotifier/internal/domain"
)

// EnqueueOutageMessages appends the rendered digests to the outbound queue
// and disarms the covered outages. One transaction: either the messages are
// queued and the flags cleared, or neither happened.
func (r *Repository) EnqueueOutageMessages(ctx context.Context, outageIDs []int64, msgs []domain.OutboundMessage) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessages(ctx, tx, msgs); err != nil {
			return err
		}
		return clearResend(ctx, tx, outageIDs)
	})
}

// EnqueueEventMessages appends the rendered notices to the outbound queue
// and marks the covered raw events processed, in one transaction.
func (r *Repository) EnqueueEventMessages(ctx context.Context, eventIDs []int64, msgs []domain.OutboundMessage) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertMessages(ctx, tx, msgs); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE events SET processed = TRUE WHERE id = ANY($1)`, pq.Array(eventIDs))
		if err != nil {
			return fmt.Errorf("mark events processed: %w", err)
		}
		return nil
	})
}

// PendingMessages lists unsent, non-quarantined messages oldest first.
func (r *Repository) PendingMessages(ctx context.Context, limit int) ([]domain.OutboundMessage, error) {
	query, args, err := r.sb.Select("id", "language", "body", "event_ids", "created_at").
		From("messages").
		Where(sq.Eq{"sent_at": nil, "failed_at": nil}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.OutboundMessage
	for rows.Next() {
		var m domain.OutboundMessage
		if err := rows.Scan(&m.ID, &m.Language, &m.Text, pq.Array(&m.EventIDs), &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messages iteration: %w", err)
	}
	return msgs, nil
}

// MarkSent records the delivery time of one message.
func (r *Repository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	query, args, err := r.sb.Update("messages").
		Set("sent_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark sent: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark message %d sent: %w", id, err)
	}
	return nil
}

// MarkFailed quarantines a fatally rejected message so the pending scan
// stops returning it.
func (r *Repository) MarkFailed(ctx context.Context, id int64, at time.Time) error {
	query, args, err := r.sb.Update("messages").
		Set("failed_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark failed: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark message %d failed: %w", id, err)
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, msgs []domain.OutboundMessage) error {
	for _, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (language, body, event_ids) VALUES ($1, $2, $3)`,
			m.Language, m.Text, pq.Array(m.EventIDs))
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}
	return nil
}
