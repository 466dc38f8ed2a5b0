package postgres

import (
	"context"
	"database/sql"
	"errors"

	"airstream/internal/domain"
)

// The reference entities share the same trivial CRUD shape; each gets
// its own repository so the service depends on narrow interfaces.

type categoryRepository struct {
	DB *sql.DB
}

// NewCategoryRepository returns a domain.CategoryRepository implemented
// with Postgres.
func NewCategoryRepository(db *sql.DB) domain.CategoryRepository {
	return &categoryRepository{DB: db}
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.Category) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id`, c.Name).Scan(&c.ID)
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	c := &domain.Category{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]*domain.Category, 0)
	for rows.Next() {
		c := &domain.Category{}
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return execOne(ctx, r.DB, `UPDATE categories SET name = $2 WHERE id = $1`, c.ID, c.Name)
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.DB, `DELETE FROM categories WHERE id = $1`, id)
}

type templateRepository struct {
	DB *sql.DB
}

// NewTemplateRepository returns a domain.TemplateRepository implemented
// with Postgres.
func NewTemplateRepository(db *sql.DB) domain.TemplateRepository {
	return &templateRepository{DB: db}
}

func (r *templateRepository) Create(ctx context.Context, t *domain.Template) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO templates (name, content) VALUES ($1, $2) RETURNING id`,
		t.Name, t.Content).Scan(&t.ID)
}

func (r *templateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	t := &domain.Template{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, content FROM templates WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *templateRepository) List(ctx context.Context) ([]*domain.Template, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, content FROM templates ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates := make([]*domain.Template, 0)
	for rows.Next() {
		t := &domain.Template{}
		if err := rows.Scan(&t.ID, &t.Name, &t.Content); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (r *templateRepository) Update(ctx context.Context, t *domain.Template) error {
	return execOne(ctx, r.DB,
		`UPDATE templates SET name = $2, content = $3 WHERE id = $1`, t.ID, t.Name, t.Content)
}

func (r *templateRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.DB, `DELETE FROM templates WHERE id = $1`, id)
}

type locationRepository struct {
	DB *sql.DB
}

// NewLocationRepository returns a domain.LocationRepository implemented
// with Postgres.
func NewLocationRepository(db *sql.DB) domain.LocationRepository {
	return &locationRepository{DB: db}
}

func (r *locationRepository) Create(ctx context.Context, l *domain.Location) error {
	return r.DB.QueryRowContext(ctx,
		`INSERT INTO locations (name, timezone) VALUES ($1, $2) RETURNING id`,
		l.Name, l.Timezone).Scan(&l.ID)
}

func (r *locationRepository) GetByID(ctx context.Context, id string) (*domain.Location, error) {
	l := &domain.Location{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, timezone FROM locations WHERE id = $1`, id).
		Scan(&l.ID, &l.Name, &l.Timezone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (r *locationRepository) List(ctx context.Context) ([]*domain.Location, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, timezone FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	locations := make([]*domain.Location, 0)
	for rows.Next() {
		l := &domain.Location{}
		if err := rows.Scan(&l.ID, &l.Name, &l.Timezone); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *locationRepository) Update(ctx context.Context, l *domain.Location) error {
	return execOne(ctx, r.DB,
		`UPDATE locations SET name = $2, timezone = $3 WHERE id = $1`, l.ID, l.Name, l.Timezone)
}

func (r *locationRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.DB, `DELETE FROM locations WHERE id = $1`, id)
}

// execOne runs a statement expected to touch exactly one row and maps a
// zero row count to ErrNotFound.
func execOne(ctx context.Context, db *sql.DB, query string, args ...interface{}) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
