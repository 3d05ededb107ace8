package application

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	repo "github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
	"github.com/ryowuandjanet/go-user-auth/pkg/helpers"
)

type CreateUserInput struct {
	Email    string
	Name     string
	IsActive *bool
}

// UserService is plain record management. Users created here have no
// password and cannot log in until they go through a reset.
type UserService struct {
	Repo   repo.UserRepository
	Logger *logrus.Logger
}

func NewUserService(r repo.UserRepository, logger *logrus.Logger) *UserService {
	return &UserService{Repo: r, Logger: logger}
}

func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	u := &entity.User{
		Email:     in.Email,
		Name:      in.Name,
		IsActive:  active,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, ErrEmailAlreadyRegistered
		}
		helpers.LogError(s.Logger, "create user failed", err, nil)
		return nil, err
	}
	return u, nil
}

// List returns up to limit users; limit outside 1..MaxList means MaxList.
func (s *UserService) List(ctx context.Context, limit int) ([]*entity.User, error) {
	if limit <= 0 || limit > repo.MaxList {
		limit = repo.MaxList
	}
	users, err := s.Repo.List(ctx, limit)
	if err != nil {
		helpers.LogError(s.Logger, "list users failed", err, logrus.Fields{"limit": limit})
		return nil, err
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		helpers.LogError(s.Logger, "get user failed", err, logrus.Fields{"user_id": id})
		return nil, err
	}
	return u, nil
}

// Ping reports store health.
func (s *UserService) Ping(ctx context.Context) error {
	return s.Repo.Ping(ctx)
}
