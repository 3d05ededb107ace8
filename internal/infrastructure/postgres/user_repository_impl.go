package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	"github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
)

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

type UserRepository struct {
	db DB
}

func NewUserRepository(db DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, name, is_active, created_at, reset_token_hash, reset_token_expires`

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.IsActive,
		&u.CreatedAt, &u.ResetTokenHash, &u.ResetTokenExpires); err != nil {
		return nil, err
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, u.Email, u.Password, u.Name, u.IsActive, u.CreatedAt)

	if err := row.Scan(&u.ID); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailTaken
		}
		return oops.Code("PG_INSERT").With("table", "users").Wrap(err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, oops.Code("PG_SELECT").With("table", "users").Wrap(err)
	}
	return u, nil
}

// GetByID treats an id that is not a UUID as unknown.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return r.getOne(ctx, `id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, `email = $1`, email)
}

func (r *UserRepository) List(ctx context.Context, limit int) ([]*entity.User, error) {
	if limit <= 0 || limit > repository.MaxList {
		limit = repository.MaxList
	}
	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1`, limit)
	if err != nil {
		return nil, oops.Code("PG_SELECT").With("table", "users").Wrap(err)
	}
	defer rows.Close()

	out := make([]*entity.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, oops.Code("PG_SCAN").Wrap(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PG_ROWS").Wrap(err)
	}
	return out, nil
}

func (r *UserRepository) SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error {
	if _, err := uuid.Parse(userID); err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users SET reset_token_hash = $1, reset_token_expires = $2
		WHERE id = $3
	`, tokenHash, expires.UTC(), userID)
	if err != nil {
		return oops.Code("PG_UPDATE").With("op", "set_reset_token").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE reset_token_hash = $1 AND reset_token_expires > $2`,
		tokenHash, now.UTC()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, oops.Code("PG_SELECT").With("table", "users").Wrap(err)
	}
	return u, nil
}

func (r *UserRepository) CompleteReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) error {
	if _, err := uuid.Parse(userID); err != nil {
		return repository.ErrNotFound
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_token_expires = NULL
		WHERE id = $2 AND reset_token_hash = $3 AND reset_token_expires > $4
	`, passwordHash, userID, tokenHash, now.UTC())
	if err != nil {
		return oops.Code("PG_UPDATE").With("op", "complete_reset").Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

var _ repository.UserRepository = (*UserRepository)(nil)
