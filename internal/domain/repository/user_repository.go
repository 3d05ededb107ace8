package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned by Create when the email is already stored.
	// Implementations must enforce this with a store-level unique constraint,
	// not a read-before-write.
	ErrEmailTaken = errors.New("email already taken")
)

// MaxList caps List results.
const MaxList = 100

// UserRepository defines the interface for user persistence.
type UserRepository interface {
	// Create inserts u and fills ID and CreatedAt.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// List returns at most limit users (capped at MaxList) in creation order.
	List(ctx context.Context, limit int) ([]*entity.User, error)

	// SetResetToken stores a reset token digest and expiry on the user,
	// replacing any outstanding one.
	SetResetToken(ctx context.Context, userID, tokenHash string, expires time.Time) error
	// GetByResetToken returns the user holding tokenHash with an expiry after now.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error)
	// CompleteReset sets the new password hash and clears both reset fields in
	// a single atomic update, conditioned on tokenHash still being outstanding
	// and unexpired at now. Returns ErrNotFound when the condition fails.
	CompleteReset(ctx context.Context, userID, tokenHash, passwordHash string, now time.Time) error

	// Ping checks store connectivity.
	Ping(ctx context.Context) error
}
