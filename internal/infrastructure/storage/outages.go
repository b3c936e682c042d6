package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"OutageNotifier/internal/domain"
)

var outageColumns = []string{
	"id", "start_time", "area", "district", "language", "event_type", "planned",
	"house_numbers", "event_ids", "area_id", "needs_resend", "updated_at",
}

// FindOutage loads the outage for key, or nil when none exists.
func (r *Repository) FindOutage(ctx context.Context, key domain.OutageKey) (*domain.AggregatedOutage, error) {
	query, args, err := r.sb.Select(outageColumns...).
		From("outages").
		Where(keyClause(key)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outage lookup: %w", err)
	}

	o, err := r.scanOutage(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup outage: %w", err)
	}
	return o, nil
}

// MergeOutage upserts the outage row for key with the merged house numbers
// and event ids, re-arms needs_resend and marks the contributing events
// processed. One transaction, so a crash replays the whole merge.
func (r *Repository) MergeOutage(ctx context.Context, key domain.OutageKey, houseNumbers []string, eventIDs []int64, areaID int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO outages (start_time, area, district, language, event_type, planned,
                                       house_numbers, event_ids, area_id, needs_resend)
                  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
                  ON CONFLICT (start_time, area, district, language, event_type, planned) DO UPDATE
                  SET house_numbers = EXCLUDED.house_numbers,
                      event_ids = EXCLUDED.event_ids,
                      area_id = EXCLUDED.area_id,
                      needs_resend = TRUE,
                      updated_at = NOW()`

		_, err := tx.ExecContext(ctx, query,
			key.StartTime, key.Area, key.District, key.Language, key.Type, key.Planned,
			pq.Array(houseNumbers), pq.Array(eventIDs), nullableID(areaID))
		if err != nil {
			return fmt.Errorf("upsert outage: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE events SET processed = TRUE WHERE id = ANY($1)`, pq.Array(eventIDs))
		if err != nil {
			return fmt.Errorf("mark events processed: %w", err)
		}
		return nil
	})
}

// OutagesNeedingSend lists armed outages for one language ordered by start
// time, then area, so composed digests come out stable.
func (r *Repository) OutagesNeedingSend(ctx context.Context, lang domain.Language) ([]domain.AggregatedOutage, error) {
	query, args, err := r.sb.Select(outageColumns...).
		From("outages").
		Where(sq.Eq{"needs_resend": true, "language": lang}).
		OrderBy("start_time", "area", "district").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build resend query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outages: %w", err)
	}
	defer rows.Close()

	var outages []domain.AggregatedOutage
	for rows.Next() {
		o, err := r.scanOutage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outage: %w", err)
		}
		outages = append(outages, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("outages iteration: %w", err)
	}
	return outages, nil
}

// clearResend drops the needs_resend flag for the given outages inside tx.
func clearResend(ctx context.Context, tx *sql.Tx, outageIDs []int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE outages SET needs_resend = FALSE WHERE id = ANY($1)`, pq.Array(outageIDs))
	if err != nil {
		return fmt.Errorf("clear resend flags: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *Repository) scanOutage(row rowScanner) (*domain.AggregatedOutage, error) {
	var (
		o      domain.AggregatedOutage
		areaID sql.NullInt64
	)
	err := row.Scan(&o.ID, &o.StartTime, &o.Area, &o.District, &o.Language, &o.Type, &o.Planned,
		pq.Array(&o.HouseNumbers), pq.Array(&o.EventIDs), &areaID, &o.NeedsResend, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.AreaID = areaID.Int64
	return &o, nil
}

func keyClause(key domain.OutageKey) sq.Eq {
	return sq.Eq{
		"start_time": key.StartTime,
		"area":       key.Area,
		"district":   key.District,
		"language":   key.Language,
		"event_type": key.Type,
		"planned":    key.Planned,
	}
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}
