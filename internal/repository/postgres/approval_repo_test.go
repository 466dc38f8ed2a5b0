package postgres

import (
	"context"
	"testing"
	"time"

	"airstream/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var approvalRowColumns = []string{
	"id", "event_id", "group_id", "name",
	"user_id", "approved", "processed", "processed_time", "comment",
}

func TestApprovalRepository_Reconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("delete and insert in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM approvals a LEFT JOIN groups g`).
			WithArgs(pq.Array([]string{"ap-2"})).
			WillReturnRows(sqlmock.NewRows(approvalRowColumns).
				AddRow("ap-2", "ev-1", "g-2", "Security", nil, false, false, nil, ""))
		mock.ExpectExec(`DELETE FROM approvals WHERE id = ANY\(\$1\)`).
			WithArgs(pq.Array([]string{"ap-2"})).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO approvals`).
			WithArgs("ev-1", "g-3").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("ap-3"))
		mock.ExpectCommit()

		repo := NewApprovalRepository(db)
		added, removed, err := repo.Reconcile(ctx, "ev-1", []string{"g-3"}, []string{"ap-2"})
		require.NoError(t, err)
		require.Len(t, added, 1)
		require.Equal(t, "ap-3", added[0].ID)
		require.Len(t, removed, 1)
		require.Equal(t, "Security", removed[0].GroupName)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO approvals`).
			WithArgs("ev-1", "g-3").
			WillReturnError(&pq.Error{Code: "23503"})
		mock.ExpectRollback()

		repo := NewApprovalRepository(db)
		_, _, err = repo.Reconcile(ctx, "ev-1", []string{"g-3"}, nil)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestApprovalRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	when := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE approvals SET`).
			WithArgs("ap-1", true, "user-1", "fine", when).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT (.+) FROM approvals a LEFT JOIN groups g`).
			WithArgs("ap-1").
			WillReturnRows(sqlmock.NewRows(approvalRowColumns).
				AddRow("ap-1", "ev-1", "g-1", "PR", "user-1", true, true, when, "fine"))

		repo := NewApprovalRepository(db)
		got, err := repo.MarkProcessed(ctx, "ap-1", true, "user-1", "fine", when)
		require.NoError(t, err)
		require.True(t, got.Processed)
		require.True(t, got.Approved)
		require.Equal(t, "PR", got.GroupName)
		require.NotNil(t, got.ProcessedTime)
		require.Equal(t, when, *got.ProcessedTime)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing approval", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE approvals SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewApprovalRepository(db)
		_, err = repo.MarkProcessed(ctx, "ap-404", false, "user-1", "", when)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestApprovalRepository_ListPendingByGroupIDs(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) WHERE a\.processed = FALSE AND a\.group_id = ANY\(\$1\)`).
		WithArgs(pq.Array([]string{"g-1", "g-2"})).
		WillReturnRows(sqlmock.NewRows(approvalRowColumns).
			AddRow("ap-1", "ev-1", "g-1", "PR", nil, false, false, nil, "").
			AddRow("ap-2", "ev-2", "g-2", "Security", nil, false, false, nil, ""))

	repo := NewApprovalRepository(db)
	got, err := repo.ListPendingByGroupIDs(ctx, []string{"g-1", "g-2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "PR", got[0].GroupName)
	require.NoError(t, mock.ExpectationsWereMet())
}
