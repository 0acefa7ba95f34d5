package sessionRepo_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/model/session"
	"filetree-service/internal/repository/sessionRepo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := sessionRepo.New(mock)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &session.DemoSession{
		ID:           uuid.New(),
		SessionToken: "tok",
		CreatedAt:    now,
		ExpiresAt:    now.Add(24 * time.Hour),
	}

	t.Run("Create", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO demo_sessions`)).
			WithArgs(s.ID, s.SessionToken, s.CreatedAt, s.ExpiresAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, s))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Create duplicate token", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO demo_sessions`)).
			WithArgs(s.ID, s.SessionToken, s.CreatedAt, s.ExpiresAt).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		assert.ErrorIs(t, repo.Create(ctx, s), common.ErrAlreadyExists)
	})

	t.Run("GetByID found", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`FROM demo_sessions WHERE id=$1`)).
			WithArgs(s.ID).
			WillReturnRows(pgxmock.NewRows([]string{"id", "session_token", "created_at", "expires_at"}).
				AddRow(s.ID, s.SessionToken, s.CreatedAt, s.ExpiresAt))

		got, err := repo.GetByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})

	t.Run("GetByID absent", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery(regexp.QuoteMeta(`FROM demo_sessions WHERE id=$1`)).
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows([]string{"id", "session_token", "created_at", "expires_at"}))

		got, err := repo.GetByID(ctx, id)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM demo_sessions WHERE expires_at < $1`)).
			WithArgs(now).
			WillReturnResult(pgxmock.NewResult("DELETE", 3))

		n, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("DeleteExpired error", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM demo_sessions`)).
			WithArgs(now).
			WillReturnError(errors.New("boom"))

		_, err := repo.DeleteExpired(ctx, now)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
