package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"airstream/internal/domain"

	"github.com/lib/pq"
)

type eventRepository struct {
	DB *sql.DB
}

// NewEventRepository returns a domain.EventRepository implemented with
// Postgres.
func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

const eventColumns = `id, title, slug, description, short_description, status,
	start_time, archive_time, public, featured, call_info, additional_links,
	location_id, category_id, template_id, creator_id, modified_user_id,
	created, modified`

func isUniqueViolation(err error) bool {
	var perr *pq.Error
	return errors.As(err, &perr) && perr.Code == "23505"
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (title, slug, description, short_description, status,
			start_time, archive_time, public, featured, call_info, additional_links,
			location_id, category_id, template_id, creator_id, modified_user_id,
			created, modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		e.Title, e.Slug, e.Description, e.ShortDescription, e.Status,
		e.StartTime, e.ArchiveTime, e.Public, e.Featured, e.CallInfo, e.AdditionalLinks,
		e.LocationID, e.CategoryID, e.TemplateID, e.CreatorID, e.ModifiedUserID,
		e.Created, e.Modified,
	).Scan(&e.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugExists
		}
		return err
	}
	return nil
}

func scanEvent(scan func(dest ...interface{}) error) (*domain.Event, error) {
	e := &domain.Event{}
	var archiveNull sql.NullTime
	var locationNull, categoryNull, templateNull sql.NullString
	var creatorNull, modifiedByNull sql.NullString
	err := scan(
		&e.ID, &e.Title, &e.Slug, &e.Description, &e.ShortDescription, &e.Status,
		&e.StartTime, &archiveNull, &e.Public, &e.Featured, &e.CallInfo, &e.AdditionalLinks,
		&locationNull, &categoryNull, &templateNull, &creatorNull, &modifiedByNull,
		&e.Created, &e.Modified,
	)
	if err != nil {
		return nil, err
	}
	if archiveNull.Valid {
		e.ArchiveTime = &archiveNull.Time
	}
	if locationNull.Valid {
		e.LocationID = &locationNull.String
	}
	if categoryNull.Valid {
		e.CategoryID = &categoryNull.String
	}
	if templateNull.Valid {
		e.TemplateID = &templateNull.String
	}
	if creatorNull.Valid {
		e.CreatorID = &creatorNull.String
	}
	if modifiedByNull.Valid {
		e.ModifiedUserID = &modifiedByNull.String
	}
	return e, nil
}

func (r *eventRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE %s`, eventColumns, where)
	row := r.DB.QueryRowContext(ctx, query, arg)
	e, err := scanEvent(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *eventRepository) GetBySlug(ctx context.Context, slug string) (*domain.Event, error) {
	return r.getOne(ctx, "slug = $1", slug)
}

func (r *eventRepository) Update(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET title = $2, slug = $3, description = $4,
			short_description = $5, status = $6, start_time = $7, archive_time = $8,
			public = $9, featured = $10, call_info = $11, additional_links = $12,
			location_id = $13, category_id = $14, template_id = $15,
			modified_user_id = $16, modified = $17
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		e.ID, e.Title, e.Slug, e.Description,
		e.ShortDescription, e.Status, e.StartTime, e.ArchiveTime,
		e.Public, e.Featured, e.CallInfo, e.AdditionalLinks,
		e.LocationID, e.CategoryID, e.TemplateID,
		e.ModifiedUserID, e.Modified,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugExists
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func filterClauses(filter domain.EventFilter, args []interface{}) ([]string, []interface{}) {
	var clauses []string
	if filter.PublicOnly {
		clauses = append(clauses, "public = TRUE")
	}
	if filter.FeaturedOnly {
		clauses = append(clauses, "featured = TRUE")
	}
	if filter.TitleContains != "" {
		args = append(args, "%"+filter.TitleContains+"%")
		clauses = append(clauses, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if filter.CreatorID != nil {
		args = append(args, *filter.CreatorID)
		clauses = append(clauses, fmt.Sprintf("creator_id = $%d", len(args)))
	}
	return clauses, args
}

func (r *eventRepository) List(ctx context.Context, filter domain.EventFilter) ([]*domain.Event, error) {
	clauses, args := filterClauses(filter, nil)
	query := fmt.Sprintf(`SELECT %s FROM events`, eventColumns)
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) Search(ctx context.Context, filter domain.EventFilter, params domain.PaginationParams) ([]*domain.Event, int, error) {
	clauses, args := filterClauses(filter, nil)
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY start_time DESC LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit(), params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, e)
	}
	return events, total, rows.Err()
}

func (r *eventRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM events WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (r *eventRepository) CreateOldSlug(ctx context.Context, eventID, slug string) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_old_slugs (event_id, slug) VALUES ($1, $2)
		 ON CONFLICT (slug) DO NOTHING`, eventID, slug)
	return err
}

func (r *eventRepository) GetIDByOldSlug(ctx context.Context, slug string) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx,
		`SELECT event_id FROM event_old_slugs WHERE slug = $1`, slug).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return id, nil
}

func (r *eventRepository) OldSlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_old_slugs WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}
