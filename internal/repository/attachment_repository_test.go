package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestAttachmentRepository_SoftDelete(t *testing.T) {
	t.Run("marks the row deleted", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		repo := NewAttachmentRepository(db)

		mock.ExpectExec(`UPDATE attachments SET deleted_at = NOW\(\) WHERE id = \$1 AND deleted_at IS NULL`).
			WithArgs(77).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SoftDelete(context.Background(), 77))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already-deleted row is not found", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		defer db.Close()

		repo := NewAttachmentRepository(db)

		mock.ExpectExec(`UPDATE attachments SET deleted_at = NOW\(\)`).
			WithArgs(77).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.ErrorIs(t, repo.SoftDelete(context.Background(), 77), ErrNotFound)
	})
}
