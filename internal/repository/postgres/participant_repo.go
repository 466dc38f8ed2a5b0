package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"airstream/internal/domain"
)

type participantRepository struct {
	DB *sql.DB
}

// NewParticipantRepository returns a domain.ParticipantRepository
// implemented with Postgres.
func NewParticipantRepository(db *sql.DB) domain.ParticipantRepository {
	return &participantRepository{DB: db}
}

const participantColumns = `id, name, slug, email, department, team,
	topic_url, role, cleared, clear_token, creator_id`

func scanParticipant(scan func(dest ...interface{}) error) (*domain.Participant, error) {
	p := &domain.Participant{}
	var tokenNull, creatorNull sql.NullString
	err := scan(
		&p.ID, &p.Name, &p.Slug, &p.Email, &p.Department, &p.Team,
		&p.TopicURL, &p.Role, &p.Cleared, &tokenNull, &creatorNull,
	)
	if err != nil {
		return nil, err
	}
	if tokenNull.Valid {
		p.ClearToken = tokenNull.String
	}
	if creatorNull.Valid {
		p.CreatorID = &creatorNull.String
	}
	return p, nil
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO participants (name, slug, email, department, team,
			topic_url, role, cleared, clear_token, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		p.Name, p.Slug, p.Email, p.Department, p.Team,
		p.TopicURL, p.Role, p.Cleared, p.ClearToken, p.CreatorID,
	).Scan(&p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugExists
		}
		return err
	}
	return nil
}

func (r *participantRepository) getOne(ctx context.Context, where string, arg interface{}) (*domain.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE %s`, participantColumns, where)
	row := r.DB.QueryRowContext(ctx, query, arg)
	p, err := scanParticipant(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *participantRepository) GetBySlug(ctx context.Context, slug string) (*domain.Participant, error) {
	return r.getOne(ctx, "slug = $1", slug)
}

func (r *participantRepository) GetByClearToken(ctx context.Context, token string) (*domain.Participant, error) {
	if token == "" {
		return nil, domain.ErrNotFound
	}
	return r.getOne(ctx, "clear_token = $1", token)
}

func (r *participantRepository) Update(ctx context.Context, p *domain.Participant) error {
	query := `
		UPDATE participants SET name = $2, email = $3, department = $4,
			team = $5, topic_url = $6, role = $7, cleared = $8,
			clear_token = NULLIF($9, '')
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, p.Department,
		p.Team, p.TopicURL, p.Role, p.Cleared,
		p.ClearToken,
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

func (r *participantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM participants WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *participantRepository) Search(ctx context.Context, nameContains string, params domain.PaginationParams) ([]*domain.Participant, int, error) {
	where := ""
	var args []interface{}
	if nameContains != "" {
		where = " WHERE name ILIKE $1"
		args = append(args, "%"+nameContains+"%")
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM participants%s ORDER BY name LIMIT $%d OFFSET $%d`,
		participantColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.Limit(), params.Offset())

	participants, err := r.queryMany(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return participants, total, nil
}

func (r *participantRepository) ListByCleared(ctx context.Context, cleared domain.ClearedStatus) ([]*domain.Participant, error) {
	query := fmt.Sprintf(`SELECT %s FROM participants WHERE cleared = $1 ORDER BY name`, participantColumns)
	return r.queryMany(ctx, query, cleared)
}

func (r *participantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (r *participantRepository) SetEventParticipants(ctx context.Context, eventID string, participantIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM event_participants WHERE event_id = $1`, eventID); err != nil {
		return err
	}
	for _, id := range participantIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO event_participants (event_id, participant_id) VALUES ($1, $2)
			 ON CONFLICT (event_id, participant_id) DO NOTHING`, eventID, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *participantRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	query := `
		SELECT p.id, p.name, p.slug, p.email, p.department, p.team,
			p.topic_url, p.role, p.cleared, p.clear_token, p.creator_id
		FROM participants p
		JOIN event_participants ep ON ep.participant_id = p.id
		WHERE ep.event_id = $1
		ORDER BY p.name
	`
	return r.queryMany(ctx, query, eventID)
}

func (r *participantRepository) ListEventIDsByParticipant(ctx context.Context, participantID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT e.id FROM events e
		JOIN event_participants ep ON ep.event_id = e.id
		WHERE ep.participant_id = $1
		ORDER BY e.start_time DESC`, participantID)
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

func (r *participantRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*domain.Participant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
