package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"airstream/internal/domain"

	"github.com/lib/pq"
)

type approvalRepository struct {
	DB *sql.DB
}

// NewApprovalRepository returns a domain.ApprovalRepository implemented
// with Postgres.
func NewApprovalRepository(db *sql.DB) domain.ApprovalRepository {
	return &approvalRepository{DB: db}
}

const approvalColumns = `a.id, a.event_id, a.group_id, COALESCE(g.name, ''),
	a.user_id, a.approved, a.processed, a.processed_time, a.comment`

const approvalFrom = `FROM approvals a LEFT JOIN groups g ON g.id = a.group_id`

func scanApproval(scan func(dest ...interface{}) error) (*domain.Approval, error) {
	a := &domain.Approval{}
	var groupNull, userNull sql.NullString
	var processedNull sql.NullTime
	err := scan(
		&a.ID, &a.EventID, &groupNull, &a.GroupName,
		&userNull, &a.Approved, &a.Processed, &processedNull, &a.Comment,
	)
	if err != nil {
		return nil, err
	}
	if groupNull.Valid {
		a.GroupID = &groupNull.String
	}
	if userNull.Valid {
		a.UserID = &userNull.String
	}
	if processedNull.Valid {
		a.ProcessedTime = &processedNull.Time
	}
	return a, nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*domain.Approval, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.id = $1`, approvalColumns, approvalFrom)
	row := r.DB.QueryRowContext(ctx, query, id)
	a, err := scanApproval(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *approvalRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Approval, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE a.event_id = $1 ORDER BY a.id`, approvalColumns, approvalFrom)
	return r.queryMany(ctx, query, eventID)
}

// Reconcile applies the approval diff for one event in a single
// transaction. The deleted rows are read back first so the caller can
// inspect what was dropped.
func (r *approvalRepository) Reconcile(ctx context.Context, eventID string, addGroupIDs, removeIDs []string) ([]*domain.Approval, []*domain.Approval, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	var removed []*domain.Approval
	if len(removeIDs) > 0 {
		query := fmt.Sprintf(`SELECT %s %s WHERE a.id = ANY($1)`, approvalColumns, approvalFrom)
		rows, err := tx.QueryContext(ctx, query, pq.Array(removeIDs))
		if err != nil {
			return nil, nil, err
		}
		for rows.Next() {
			a, err := scanApproval(rows.Scan)
			if err != nil {
				rows.Close()
				return nil, nil, err
			}
			removed = append(removed, a)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, nil, err
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM approvals WHERE id = ANY($1)`, pq.Array(removeIDs)); err != nil {
			return nil, nil, err
		}
	}

	var added []*domain.Approval
	for _, groupID := range addGroupIDs {
		a := domain.NewApproval(eventID, groupID)
		err := tx.QueryRowContext(ctx,
			`INSERT INTO approvals (event_id, group_id, approved, processed)
			 VALUES ($1, $2, FALSE, FALSE)
			 ON CONFLICT (event_id, group_id) DO NOTHING
			 RETURNING id`, eventID, groupID).Scan(&a.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Raced with another writer; the approval exists.
				continue
			}
			return nil, nil, err
		}
		added = append(added, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return added, removed, nil
}

func (r *approvalRepository) MarkProcessed(ctx context.Context, id string, approved bool, userID, comment string, processedTime time.Time) (*domain.Approval, error) {
	query := `
		UPDATE approvals SET approved = $2, processed = TRUE, user_id = $3,
			comment = $4, processed_time = $5
		WHERE id = $1
	`
	result, err := r.DB.ExecContext(ctx, query, id, approved, userID, comment, processedTime)
	if err != nil {
		return nil, err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *approvalRepository) ListPendingByGroupIDs(ctx context.Context, groupIDs []string) ([]*domain.Approval, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE a.processed = FALSE AND a.group_id = ANY($1)
		ORDER BY a.id`, approvalColumns, approvalFrom)
	return r.queryMany(ctx, query, pq.Array(groupIDs))
}

func (r *approvalRepository) ListProcessedByGroupIDs(ctx context.Context, groupIDs []string, limit int) ([]*domain.Approval, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE a.processed = TRUE AND a.group_id = ANY($1)
		ORDER BY a.processed_time DESC
		LIMIT $2`, approvalColumns, approvalFrom)
	return r.queryMany(ctx, query, pq.Array(groupIDs), limit)
}

func (r *approvalRepository) queryMany(ctx context.Context, query string, args ...interface{}) ([]*domain.Approval, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	approvals := make([]*domain.Approval, 0)
	for rows.Next() {
		a, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}
