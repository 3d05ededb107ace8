package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ryowuandjanet/go-user-auth/internal/domain/entity"
	repo "github.com/ryowuandjanet/go-user-auth/internal/domain/repository"
	"github.com/ryowuandjanet/go-user-auth/internal/observability"
	"github.com/ryowuandjanet/go-user-auth/pkg/helpers"
)

const TokenTypeBearer = "bearer"

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, now time.Time) (string, time.Time, error)
}

// PasswordResetMailer delivers the reset link to the user.
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}

// ResetSettings configures the password reset flow.
type ResetSettings struct {
	BaseURL    string
	TTL        time.Duration
	MailDriver string // metrics label only
}

// AccessToken is the OAuth2-style token response.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"-"`
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

type AuthService struct {
	Users   repo.UserRepository
	Hasher  helpers.PasswordHasher
	Tokens  TokenIssuer
	Mailer  PasswordResetMailer
	Reset   ResetSettings
	Metrics *observability.Metrics
	Logger  *logrus.Logger

	now func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repo.UserRepository, hasher helpers.PasswordHasher, tokens TokenIssuer, mailer PasswordResetMailer, reset ResetSettings, metrics *observability.Metrics, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:   users,
		Hasher:  hasher,
		Tokens:  tokens,
		Mailer:  mailer,
		Reset:   reset,
		Metrics: metrics,
		Logger:  logger,
		now:     time.Now,
	}
}

func (s *AuthService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

func (s *AuthService) issue(email string) (AccessToken, error) {
	tok, exp, err := s.Tokens.Issue(email, s.clock())
	if err != nil {
		helpers.LogError(s.Logger, "issue access token failed", err, nil)
		return AccessToken{}, fmt.Errorf("issue token: %w", err)
	}
	return AccessToken{AccessToken: tok, TokenType: TokenTypeBearer, ExpiresAt: exp}, nil
}

// Register creates the account and returns a token for it. The email
// pre-check only avoids a needless hash; the store's unique constraint decides.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AccessToken, error) {
	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		s.Metrics.AuthFlow(observability.FlowRegister, observability.OutcomeRejected)
		return AccessToken{}, ErrEmailAlreadyRegistered
	} else if !errors.Is(err, repo.ErrNotFound) {
		s.fail(observability.FlowRegister, "lookup user failed", err)
		return AccessToken{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		s.fail(observability.FlowRegister, "hash password failed", err)
		return AccessToken{}, err
	}

	u := &entity.User{
		Email:     in.Email,
		Name:      in.Name,
		Password:  hash,
		IsActive:  true,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			s.Metrics.AuthFlow(observability.FlowRegister, observability.OutcomeRejected)
			return AccessToken{}, ErrEmailAlreadyRegistered
		}
		s.fail(observability.FlowRegister, "create user failed", err)
		return AccessToken{}, err
	}

	tok, err := s.issue(u.Email)
	if err != nil {
		s.Metrics.AuthFlow(observability.FlowRegister, observability.OutcomeError)
		return AccessToken{}, err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("user registered")
	}
	s.Metrics.AuthFlow(observability.FlowRegister, observability.OutcomeSuccess)
	return tok, nil
}

// Login checks the credentials. Unknown email and wrong password are
// reported identically, and an unknown email still pays for a bcrypt compare.
func (s *AuthService) Login(ctx context.Context, email, password string) (AccessToken, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			s.fail(observability.FlowLogin, "lookup user failed", err)
			return AccessToken{}, err
		}
		s.Hasher.Verify(password, s.dummy())
		s.Metrics.AuthFlow(observability.FlowLogin, observability.OutcomeRejected)
		return AccessToken{}, ErrInvalidCredentials
	}
	if !s.Hasher.Verify(password, u.Password) {
		s.Metrics.AuthFlow(observability.FlowLogin, observability.OutcomeRejected)
		return AccessToken{}, ErrInvalidCredentials
	}

	tok, err := s.issue(u.Email)
	if err != nil {
		s.Metrics.AuthFlow(observability.FlowLogin, observability.OutcomeError)
		return AccessToken{}, err
	}
	s.Metrics.AuthFlow(observability.FlowLogin, observability.OutcomeSuccess)
	return tok, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("not-a-real-password")
	})
	return s.dummyHash
}

// ForgotPassword stores a fresh reset token and mails the link. Delivery
// problems are logged and counted; the caller still gets success.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.AuthFlow(observability.FlowForgot, observability.OutcomeRejected)
			return ErrUserNotFound
		}
		s.fail(observability.FlowForgot, "lookup user failed", err)
		return err
	}

	token, digest, err := helpers.GenerateResetToken()
	if err != nil {
		s.fail(observability.FlowForgot, "generate reset token failed", err)
		return err
	}
	expires := s.clock().Add(s.Reset.TTL).UTC()
	if err := s.Users.SetResetToken(ctx, u.ID, digest, expires); err != nil {
		s.fail(observability.FlowForgot, "store reset token failed", err)
		return err
	}

	link, err := ResetLink(s.Reset.BaseURL, token)
	if err == nil && s.Mailer != nil {
		err = s.Mailer.SendPasswordReset(ctx, u.Email, link)
	}
	if err != nil {
		s.Metrics.MailFailure(s.Reset.MailDriver)
		if s.Logger != nil {
			s.Logger.WithError(err).WithFields(logrus.Fields{
				"user_id": u.ID,
				"driver":  s.Reset.MailDriver,
			}).Warn("password reset email not sent")
		}
	}
	s.Metrics.AuthFlow(observability.FlowForgot, observability.OutcomeSuccess)
	return nil
}

// ResetPassword consumes the token and sets the new password. The final
// update is conditional, so a token can only ever be used once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		s.Metrics.AuthFlow(observability.FlowReset, observability.OutcomeRejected)
		return ErrInvalidOrExpiredToken
	}
	digest := helpers.HashResetToken(token)
	now := s.clock()

	u, err := s.Users.GetByResetToken(ctx, digest, now)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.AuthFlow(observability.FlowReset, observability.OutcomeRejected)
			return ErrInvalidOrExpiredToken
		}
		s.fail(observability.FlowReset, "lookup reset token failed", err)
		return err
	}

	hash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		s.fail(observability.FlowReset, "hash password failed", err)
		return err
	}
	if err := s.Users.CompleteReset(ctx, u.ID, digest, hash, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			s.Metrics.AuthFlow(observability.FlowReset, observability.OutcomeRejected)
			return ErrInvalidOrExpiredToken
		}
		s.fail(observability.FlowReset, "complete reset failed", err)
		return err
	}
	if s.Logger != nil {
		s.Logger.WithField("user_id", u.ID).Info("password reset completed")
	}
	s.Metrics.AuthFlow(observability.FlowReset, observability.OutcomeSuccess)
	return nil
}

// Logout has nothing to revoke; tokens expire on their own.
func (s *AuthService) Logout(context.Context) error {
	s.Metrics.AuthFlow(observability.FlowLogout, observability.OutcomeSuccess)
	return nil
}

// CurrentUser resolves a verified token subject to its account.
func (s *AuthService) CurrentUser(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		helpers.LogError(s.Logger, "lookup current user failed", err, nil)
		return nil, err
	}
	return u, nil
}

func (s *AuthService) fail(flow, msg string, err error) {
	s.Metrics.AuthFlow(flow, observability.OutcomeError)
	helpers.LogError(s.Logger, msg, err, logrus.Fields{"flow": flow})
}

// ResetLink appends the token to base as the "token" query parameter,
// keeping any query base already has.
func ResetLink(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("reset url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
