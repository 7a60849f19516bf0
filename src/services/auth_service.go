package services

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/reconhub/backend/src/logger"
	"golang.org/x/crypto/bcrypt"
)

type authServiceImpl struct {
	jwtSecret         []byte
	adminPasswordHash []byte
	tokenExpiry       time.Duration
}

func NewAuthService(jwtSecret, adminPasswordHash string, tokenExpiry time.Duration) AuthService {
	return &authServiceImpl{
		jwtSecret:         []byte(jwtSecret),
		adminPasswordHash: []byte(adminPasswordHash),
		tokenExpiry:       tokenExpiry,
	}
}

// Login exchanges the admin password for a signed token.
func (s *authServiceImpl) Login(password string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminPasswordHash, []byte(password)); err != nil {
		logger.L.Warn("Admin login attempt with incorrect password")
		return "", ErrInvalidPassword
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenExpiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("signing admin token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and expiry of an admin token.
func (s *authServiceImpl) ValidateToken(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
