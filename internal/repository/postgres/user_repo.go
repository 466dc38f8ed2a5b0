package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"airstream/internal/domain"

	"github.com/lib/pq"
)

type userRepository struct {
	DB *sql.DB
}

// NewUserRepository returns a domain.UserRepository implemented with
// Postgres.
func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User, passwordHash, salt string) error {
	query := `
		INSERT INTO users (email, name, is_active, is_superuser, roles,
			password_hash, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		strings.ToLower(u.Email), u.Name, u.IsActive, u.IsSuperuser, pq.Array(u.Roles),
		passwordHash, salt, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.User, error) {
	query := `
		SELECT id, email, name, is_active, is_superuser, roles, created_at, updated_at
		FROM users
		WHERE ` + where
	u := &domain.User{}
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.Name, &u.IsActive, &u.IsSuperuser,
		pq.Array(&u.Roles), &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "email = $1", strings.ToLower(email))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *userRepository) GetCredentials(ctx context.Context, email string) (string, string, string, error) {
	var userID, hash, salt string
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, password_hash, salt FROM users WHERE email = $1`,
		strings.ToLower(email)).Scan(&userID, &hash, &salt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", "", domain.ErrUserNotFound
		}
		return "", "", "", err
	}
	return userID, hash, salt, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users SET email = $2, name = $3, is_active = $4,
			is_superuser = $5, roles = $6, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		u.ID, strings.ToLower(u.Email), u.Name, u.IsActive, u.IsSuperuser, pq.Array(u.Roles))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(ctx context.Context, params domain.PaginationParams) ([]*domain.User, int, error) {
	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, email, name, is_active, is_superuser, roles, created_at, updated_at
		FROM users
		ORDER BY email
		LIMIT $1 OFFSET $2`, params.Limit(), params.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.IsSuperuser,
			pq.Array(&u.Roles), &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
