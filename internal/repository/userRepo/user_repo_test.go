package userRepo_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"filetree-service/internal/common"
	"filetree-service/internal/model/user"
	"filetree-service/internal/repository/userRepo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "password_hash", "created_at", "updated_at"}

func newRepo(t *testing.T) (*userRepo.UserRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return userRepo.New(mock), mock
}

func TestUserRepo_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	hash := "$2a$10$hash"

	t.Run("success", func(t *testing.T) {
		repo, mock := newRepo(t)
		u := &user.User{ID: uuid.New(), Email: "a@b.io", PasswordHash: &hash}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, email, password_hash)`)).
			WithArgs(u.ID, u.Email, u.PasswordHash).
			WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		require.NoError(t, repo.Create(ctx, u))
		assert.Equal(t, now, u.CreatedAt)
		assert.Equal(t, now, u.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock := newRepo(t)
		u := &user.User{ID: uuid.New(), Email: "a@b.io", PasswordHash: &hash}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(u.ID, u.Email, u.PasswordHash).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

		err := repo.Create(ctx, u)
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepo(t)
		u := &user.User{ID: uuid.New(), Email: "a@b.io"}

		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs(u.ID, u.Email, u.PasswordHash).
			WillReturnError(errors.New("db down"))

		err := repo.Create(ctx, u)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrAlreadyExists)
	})
}

func TestUserRepo_GetByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	id := uuid.New()
	hash := "$2a$10$hash"

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
			WithArgs("a@b.io").
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id, "a@b.io", &hash, now, now))

		u, err := repo.GetByEmail(ctx, "a@b.io")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, id, u.ID)
		assert.True(t, u.HasPassword())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null password hash", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
			WithArgs("oauth@b.io").
			WillReturnRows(pgxmock.NewRows(userColumns).AddRow(id, "oauth@b.io", nil, now, now))

		u, err := repo.GetByEmail(ctx, "oauth@b.io")
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.False(t, u.HasPassword())
	})

	t.Run("absent", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email=$1`)).
			WithArgs("ghost@b.io").
			WillReturnRows(pgxmock.NewRows(userColumns))

		u, err := repo.GetByEmail(ctx, "ghost@b.io")
		assert.NoError(t, err)
		assert.Nil(t, u)
	})
}

func TestUserRepo_GetByID_Error(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id=$1`)).
		WithArgs(id).
		WillReturnError(errors.New("conn reset"))

	u, err := repo.GetByID(context.Background(), id)
	assert.Error(t, err)
	assert.Nil(t, u)
}

func TestUserRepo_Delete(t *testing.T) {
	repo, mock := newRepo(t)
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id=$1`)).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id=$1`)).
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}
