package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"OutageNotifier/internal/domain"
)

var eventColumns = []string{
	"id", "event_type", "language", "area", "district", "house_numbers",
	"start_time", "end_time", "body", "planned", "hash", "processed", "first_seen",
}

// InsertRawEvent stores one sighting. The hash unique constraint is the
// dedup gate: a duplicate insert reports (false, nil) without touching the
// existing row.
func (r *Repository) InsertRawEvent(ctx context.Context, e *domain.RawEvent) (bool, error) {
	query, args, err := r.sb.Insert("events").
		Columns("event_type", "language", "area", "district", "house_numbers",
			"start_time", "end_time", "body", "planned", "hash").
		Values(e.Type, e.Language, e.Area, e.District, e.HouseNumbers,
			e.StartTime, e.EndTime, e.Text, e.Planned, e.Hash).
		Suffix("RETURNING id, first_seen").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert event: %w", err)
	}

	err = r.db.QueryRowContext(ctx, query, args...).Scan(&e.ID, &e.FirstSeen)
	if err != nil {
		if isUniqueViolation(err, "events_hash_key") {
			return false, nil
		}
		return false, fmt.Errorf("insert event: %w", err)
	}
	return true, nil
}

// HasEventHash reports whether a sighting with this content hash exists.
func (r *Repository) HasEventHash(ctx context.Context, hash string) (bool, error) {
	query, args, err := r.sb.Select("1").
		From("events").
		Where(sq.Eq{"hash": hash}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build hash lookup: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("lookup hash: %w", err)
}

// UnprocessedEmergencyPower lists unplanned power sightings that carry an
// address, oldest first so merges replay in arrival order.
func (r *Repository) UnprocessedEmergencyPower(ctx context.Context) ([]domain.RawEvent, error) {
	query, args, err := r.sb.Select(eventColumns...).
		From("events").
		Where(sq.Eq{"event_type": domain.EventPower, "processed": false, "planned": false}).
		Where(sq.NotEq{"area": ""}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build power query: %w", err)
	}
	return r.queryEvents(ctx, query, args)
}

// UnprocessedBodyEvents lists unprocessed free-text sightings of one type,
// oldest first.
func (r *Repository) UnprocessedBodyEvents(ctx context.Context, t domain.EventType) ([]domain.RawEvent, error) {
	query, args, err := r.sb.Select(eventColumns...).
		From("events").
		Where(sq.Eq{"event_type": t, "processed": false}).
		Where(sq.NotEq{"body": ""}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build body query: %w", err)
	}
	return r.queryEvents(ctx, query, args)
}

// PurgeProcessedBefore removes processed sightings first seen before cutoff,
// keeping any whose derived messages are still queued.
func (r *Repository) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM events e
              WHERE e.processed
                AND e.first_seen < $1
                AND NOT EXISTS (
                    SELECT 1 FROM messages m
                    WHERE e.id = ANY(m.event_ids)
                      AND m.sent_at IS NULL AND m.failed_at IS NULL
                )`

	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return removed, nil
}

func (r *Repository) queryEvents(ctx context.Context, query string, args []interface{}) ([]domain.RawEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []domain.RawEvent
	for rows.Next() {
		var e domain.RawEvent
		if err := rows.Scan(&e.ID, &e.Type, &e.Language, &e.Area, &e.District, &e.HouseNumbers,
			&e.StartTime, &e.EndTime, &e.Text, &e.Planned, &e.Hash, &e.Processed, &e.FirstSeen); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("events iteration: %w", err)
	}
	return events, nil
}
