package postgres

import (
	"context"
	"database/sql"
	"errors"

	"airstream/internal/domain"

	"github.com/lib/pq"
)

type groupRepository struct {
	DB *sql.DB
}

// NewGroupRepository returns a domain.GroupRepository implemented with
// Postgres.
func NewGroupRepository(db *sql.DB) domain.GroupRepository {
	return &groupRepository{DB: db}
}

func (r *groupRepository) Create(ctx context.Context, g *domain.Group) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO groups (name) VALUES ($1) RETURNING id`, g.Name).Scan(&g.ID)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrInvalidInput
	}
	return err
}

func (r *groupRepository) GetByID(ctx context.Context, id string) (*domain.Group, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *groupRepository) GetByName(ctx context.Context, name string) (*domain.Group, error) {
	return r.getOne(ctx, "name = $1", name)
}

func (r *groupRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Group, error) {
	g := &domain.Group{}
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name FROM groups WHERE `+where, arg).Scan(&g.ID, &g.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return g, nil
}

func (r *groupRepository) List(ctx context.Context) ([]*domain.Group, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	groups := make([]*domain.Group, 0)
	for rows.Next() {
		g := &domain.Group{}
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (r *groupRepository) Update(ctx context.Context, g *domain.Group) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE groups SET name = $2 WHERE id = $1`, g.ID, g.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidInput
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *groupRepository) Delete(ctx context.Context, id string) error {
	// approvals.group_id is ON DELETE SET NULL; approvals survive the
	// group.
	result, err := r.DB.ExecContext(ctx, `DELETE FROM groups WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *groupRepository) ListMembers(ctx context.Context, groupID string) ([]*domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT u.id, u.email, u.name, u.is_active, u.is_superuser, u.roles,
			u.created_at, u.updated_at
		FROM users u
		JOIN user_groups ug ON ug.user_id = u.id
		WHERE ug.group_id = $1
		ORDER BY u.email`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.IsSuperuser,
			pq.Array(&u.Roles), &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *groupRepository) ListGroupIDsByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT group_id FROM user_groups WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *groupRepository) SetUserGroups(ctx context.Context, userID string, groupIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_groups WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, groupID := range groupIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_groups (user_id, group_id) VALUES ($1, $2)
			 ON CONFLICT (user_id, group_id) DO NOTHING`, userID, groupID); err != nil {
			return err
		}
	}
	return tx.Commit()
}
