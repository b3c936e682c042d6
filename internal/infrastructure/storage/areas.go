package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"OutageNotifier/internal/domain"
)

// FindArea loads the canonical area for (name, language), or nil.
func (r *Repository) FindArea(ctx context.Context, name string, lang domain.Language) (*domain.Area, error) {
	query, args, err := r.sb.Select("id", "name", "language").
		From("areas").
		Where(sq.Eq{"name": name, "language": lang}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build area lookup: %w", err)
	}

	var a domain.Area
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID, &a.Name, &a.Language)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup area: %w", err)
	}
	return &a, nil
}

// CreateArea inserts the area. When a concurrent caller wins the insert
// race, the existing row is fetched and returned with created=false.
func (r *Repository) CreateArea(ctx context.Context, name string, lang domain.Language) (*domain.Area, bool, error) {
	query, args, err := r.sb.Insert("areas").
		Columns("name", "language").
		Values(name, lang).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return nil, false, fmt.Errorf("build insert area: %w", err)
	}

	a := domain.Area{Name: name, Language: lang}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID)
	if err == nil {
		return &a, true, nil
	}
	if !isUniqueViolation(err, "") {
		return nil, false, fmt.Errorf("insert area: %w", err)
	}

	existing, err := r.FindArea(ctx, name, lang)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("area %q (%s) vanished after insert conflict", name, lang)
	}
	return existing, false, nil
}
