package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	"github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
)

// UserRepository keeps users in process memory. Used for local runs and tests.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := u.Email
	if _, taken := r.byEmail[key]; taken {
		return repository.ErrEmailTaken
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := clone(u)
	r.byID[cp.ID] = cp
	r.byEmail[key] = cp.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(u), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *UserRepository) List(_ context.Context, limit int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, clone(u))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *UserRepository) SetResetToken(_ context.Context, userID, tokenHash string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	h, e := tokenHash, expires
	u.ResetTokenHash = &h
	u.ResetTokenExpires = &e
	return nil
}

func (r *UserRepository) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.ResetTokenHash != nil && *u.ResetTokenHash == tokenHash && u.HasPendingReset(now) {
			return clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) CompleteReset(_ context.Context, userID, tokenHash, passwordHash string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok || u.ResetTokenHash == nil || *u.ResetTokenHash != tokenHash || !u.HasPendingReset(now) {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	u.ResetTokenHash = nil
	u.ResetTokenExpires = nil
	return nil
}

func (r *UserRepository) Ping(context.Context) error { return nil }

// Len reports how many users are stored.
func (r *UserRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func clone(u *entity.User) *entity.User {
	cp := *u
	if u.ResetTokenHash != nil {
		h := *u.ResetTokenHash
		cp.ResetTokenHash = &h
	}
	if u.ResetTokenExpires != nil {
		e := *u.ResetTokenExpires
		cp.ResetTokenExpires = &e
	}
	return &cp
}
