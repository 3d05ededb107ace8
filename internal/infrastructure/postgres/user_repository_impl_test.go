package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	"github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
)

const testID = "7d3f2c4e-8a7b-4b7e-9c2a-1f0e5d6c7b8a"

var userCols = []string{"id", "email", "password_hash", "name", "is_active", "created_at", "reset_token_hash", "reset_token_expires"}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock, NewUserRepository(mock)
}

func TestCreate_ReturnsID(t *testing.T) {
	mock, repo := newMock(t)
	u := &entity.User{Email: "a@b.com", Password: "hash", IsActive: true, CreatedAt: time.Now().UTC()}

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(u.Email, u.Password, u.Name, u.IsActive, u.CreatedAt).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(testID))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, testID, u.ID)
}

func TestCreate_UniqueViolationIsEmailTaken(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@b.com", "hash", "", true, pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &entity.User{Email: "a@b.com", Password: "hash", IsActive: true})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestCreate_OtherErrorsAreWrapped(t *testing.T) {
	mock, repo := newMock(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)

	err := repo.Create(context.Background(), &entity.User{Email: "a@b.com"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, repository.ErrEmailTaken)
}

func TestGetByID(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(testID).
		WillReturnRows(mock.NewRows(userCols).
			AddRow(testID, "a@b.com", "hash", "A", true, created, (*string)(nil), (*time.Time)(nil)))

	u, err := repo.GetByID(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.Equal(t, created, u.CreatedAt)
	assert.Nil(t, u.ResetTokenHash)
}

func TestGetByID_MalformedIDSkipsQuery(t *testing.T) {
	_, repo := newMock(t)

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetByEmail_NotFound(t *testing.T) {
	mock, repo := newMock(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("ghost@b.com").
		WillReturnRows(mock.NewRows(userCols))

	_, err := repo.GetByEmail(context.Background(), "ghost@b.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestList_ClampsLimit(t *testing.T) {
	mock, repo := newMock(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`ORDER BY created_at, id LIMIT \$1`).
		WithArgs(repository.MaxList).
		WillReturnRows(mock.NewRows(userCols).
			AddRow(testID, "a@b.com", "h", "", true, created, (*string)(nil), (*time.Time)(nil)).
			AddRow("8d3f2c4e-8a7b-4b7e-9c2a-1f0e5d6c7b8a", "c@d.com", "h", "", true, created, (*string)(nil), (*time.Time)(nil)))

	users, err := repo.List(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestSetResetToken(t *testing.T) {
	mock, repo := newMock(t)
	exp := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE users SET reset_token_hash`).
		WithArgs("digest", exp, testID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.SetResetToken(context.Background(), testID, "digest", exp))

	mock.ExpectExec(`UPDATE users SET reset_token_hash`).
		WithArgs("digest", exp, testID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.SetResetToken(context.Background(), testID, "digest", exp), repository.ErrNotFound)
}

func TestGetByResetToken(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	hash := "digest"
	exp := now.Add(time.Hour)

	mock.ExpectQuery(`reset_token_hash = \$1 AND reset_token_expires > \$2`).
		WithArgs(hash, now).
		WillReturnRows(mock.NewRows(userCols).
			AddRow(testID, "a@b.com", "h", "", true, now, &hash, &exp))

	u, err := repo.GetByResetToken(context.Background(), hash, now)
	require.NoError(t, err)
	require.NotNil(t, u.ResetTokenHash)
	assert.Equal(t, hash, *u.ResetTokenHash)
	assert.True(t, u.HasPendingReset(now))
}

func TestCompleteReset_IsConditional(t *testing.T) {
	mock, repo := newMock(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`WHERE id = \$2 AND reset_token_hash = \$3 AND reset_token_expires > \$4`).
		WithArgs("newhash", testID, "digest", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.CompleteReset(context.Background(), testID, "digest", "newhash", now))

	// Second use finds nothing to update.
	mock.ExpectExec(`WHERE id = \$2 AND reset_token_hash = \$3 AND reset_token_expires > \$4`).
		WithArgs("newhash", testID, "digest", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.CompleteReset(context.Background(), testID, "digest", "newhash", now), repository.ErrNotFound)
}

func TestPing(t *testing.T) {
	mock, repo := newMock(t)
	mock.ExpectPing()
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@h:5432/d", migrateURL("postgres://u:p@h:5432/d"))
	assert.Equal(t, "pgx5://u:p@h:5432/d", migrateURL("postgresql://u:p@h:5432/d"))
	assert.Equal(t, "pgx5://u@h/d", migrateURL("pgx5://u@h/d"))
}

func TestMigrations_Embedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_users.up.sql")
	assert.Contains(t, names, "000001_create_users.down.sql")
}
