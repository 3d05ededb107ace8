package helpers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(testSecret, "HS256", 30*time.Minute)
	require.NoError(t, err)
	return m
}

func TestNewJWTManager_Rejects(t *testing.T) {
	_, err := NewJWTManager("", "HS256", time.Minute)
	require.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewJWTManager(testSecret, "RS256", time.Minute)
	require.Error(t, err)

	_, err = NewJWTManager(testSecret, "HS256", 0)
	require.Error(t, err)
}

func TestJWTManager_ExpiryWindow(t *testing.T) {
	m := newTestManager(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tok, exp, err := m.Issue("a@b.com", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), exp)

	sub, err := m.Verify(tok, now.Add(29*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", sub)

	_, err = m.Verify(tok, now.Add(31*time.Minute))
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = m.Verify(tok, now.Add(30*time.Minute))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_WireClaims(t *testing.T) {
	m := newTestManager(t)
	now := time.Unix(1_700_000_000, 0)

	tok, _, err := m.Issue("a@b.com", now)
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok, claims)
	require.NoError(t, err)
	assert.Equal(t, jwt.MapClaims{"sub": "a@b.com", "exp": float64(now.Add(30 * time.Minute).Unix())}, claims)
}

func TestJWTManager_VerifyRejects(t *testing.T) {
	m := newTestManager(t)
	now := time.Now()
	valid, _, err := m.Issue("a@b.com", now)
	require.NoError(t, err)

	other, err := NewJWTManager("other-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)
	foreign, _, err := other.Issue("a@b.com", now)
	require.NoError(t, err)

	hs512, err := NewJWTManager(testSecret, "HS512", 30*time.Minute)
	require.NoError(t, err)
	wrongAlg, _, err := hs512.Issue("a@b.com", now)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "a@b.com"}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "a@b.com",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"malformed":      "not.a.token",
		"empty":          "",
		"tampered":       valid[:len(valid)-2] + "xx",
		"foreign secret": foreign,
		"wrong alg":      wrongAlg,
		"missing exp":    noExp,
		"missing sub":    noSub,
		"alg none":       unsigned,
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(tok, now)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
