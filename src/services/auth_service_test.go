package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-secret-key-that-is-long-enough-0001"

func newTestAuthService(t *testing.T, password string, expiry time.Duration) AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return NewAuthService(testJWTSecret, string(hash), expiry)
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc := newTestAuthService(t, "correct horse", time.Hour)

	token, err := svc.Login("correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	require.NoError(t, svc.ValidateToken(token))
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := newTestAuthService(t, "correct horse", time.Hour)

	_, err := svc.Login("battery staple")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestAuthServiceValidateGarbageToken(t *testing.T) {
	svc := newTestAuthService(t, "correct horse", time.Hour)

	require.ErrorIs(t, svc.ValidateToken("not-a-token"), ErrInvalidToken)
	require.ErrorIs(t, svc.ValidateToken(""), ErrInvalidToken)
}

func TestAuthServiceValidateExpiredToken(t *testing.T) {
	svc := newTestAuthService(t, "correct horse", -time.Minute)

	token, err := svc.Login("correct horse")
	require.NoError(t, err)

	require.ErrorIs(t, svc.ValidateToken(token), ErrInvalidToken)
}

func TestAuthServiceRejectsForeignSignature(t *testing.T) {
	issuer := newTestAuthService(t, "correct horse", time.Hour)
	token, err := issuer.Login("correct horse")
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier := NewAuthService("a-completely-different-signing-secret-02", string(hash), time.Hour)

	require.ErrorIs(t, verifier.ValidateToken(token), ErrInvalidToken)
}
