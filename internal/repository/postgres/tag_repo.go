package postgres

import (
	"context"
	"database/sql"
	"errors"

	"airstream/internal/domain"
)

type tagRepository struct {
	DB *sql.DB
}

// NewTagRepository returns a domain.TagRepository implemented with
// Postgres.
func NewTagRepository(db *sql.DB) domain.TagRepository {
	return &tagRepository{DB: db}
}

func (r *tagRepository) EnsureByName(ctx context.Context, name string) (*domain.Tag, error) {
	tag := &domain.Tag{Name: name}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id FROM tags WHERE name = $1`, name).Scan(&tag.ID)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	err = r.DB.QueryRowContext(ctx,
		`INSERT INTO tags (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id`, name).Scan(&tag.ID)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (r *tagRepository) SearchByPrefix(ctx context.Context, prefix string, limit int) ([]*domain.Tag, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name FROM tags WHERE name ILIKE $1 || '%' ORDER BY name LIMIT $2`,
		prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]*domain.Tag, 0)
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (r *tagRepository) SetEventTags(ctx context.Context, eventID string, tagIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_tags WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_tags (event_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT (event_id, tag_id) DO NOTHING`, eventID, tagID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *tagRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Tag, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT t.id, t.name FROM tags t
		 JOIN event_tags et ON et.tag_id = t.id
		 WHERE et.event_id = $1
		 ORDER BY t.name`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]*domain.Tag, 0)
	for rows.Next() {
		tag := &domain.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}
