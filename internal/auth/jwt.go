// Package auth issues and validates the access tokens that identify the
// user of a request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/heartmarshall/macrolog-backend/internal/config"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// TokenManager handles HS256 access tokens whose subject is the user ID.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewTokenManager creates a token manager.
// The secret must be at least 32 characters; config.Validate enforces it.
func NewTokenManager(cfg config.AuthConfig, clock clockwork.Clock) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		issuer: cfg.JWTIssuer,
		ttl:    cfg.AccessTokenTTL,
		clock:  clock,
	}
}

// Issue creates a signed token for the user.
func (m *TokenManager) Issue(userID uuid.UUID) (string, time.Time, error) {
	if userID == uuid.Nil {
		return "", time.Time{}, domain.NewValidationError("user_id", "required")
	}

	now := m.clock.Now()
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		Issuer:    m.issuer,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken parses a token and returns its user ID.
// Every failure wraps domain.ErrUnauthorized.
func (m *TokenManager) ValidateToken(_ context.Context, token string) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, fmt.Errorf("token is empty: %w", domain.ErrUnauthorized)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, fmt.Errorf("token expired: %w", domain.ErrUnauthorized)
		}
		return uuid.Nil, fmt.Errorf("parse token: %w: %w", domain.ErrUnauthorized, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid subject %q: %w", claims.Subject, domain.ErrUnauthorized)
	}
	return userID, nil
}
