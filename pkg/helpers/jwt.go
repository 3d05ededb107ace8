package helpers

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingSecret = errors.New("jwt: missing signing secret")
	ErrInvalidToken  = errors.New("invalid token")
)

// JWTManager issues and verifies stateless access tokens whose only claims
// are the subject (user email) and the expiry.
type JWTManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewJWTManager builds a manager for an HMAC algorithm (HS256, HS384, HS512).
func NewJWTManager(secret, algorithm string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported signing method %q", algorithm)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("jwt: ttl must be positive, got %v", ttl)
	}
	return &JWTManager{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// TTL returns the access token lifetime.
func (m *JWTManager) TTL() time.Duration { return m.ttl }

// Issue signs a token for subject that expires ttl after now.
func (m *JWTManager) Issue(subject string, now time.Time) (string, time.Time, error) {
	exp := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	s, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify checks signature, algorithm and expiry against now and returns the
// subject. Every failure wraps ErrInvalidToken; expiry additionally matches
// jwt.ErrTokenExpired.
func (m *JWTManager) Verify(tokenStr string, now time.Time) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
