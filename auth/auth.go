// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid caller token")
	ErrEmptyCaller  = errors.New("caller id is required")
	ErrEmptySecret  = errors.New("token secret is required")
)

// IssueCallerToken signs an HS256 token whose subject is the caller id.
// The token is valid from now until now+ttl.
func IssueCallerToken(callerID, secret string, ttl time.Duration, now time.Time) (string, error) {
	if callerID == "" {
		return "", ErrEmptyCaller
	}
	if secret == "" {
		return "", ErrEmptySecret
	}

	claims := jwt.RegisteredClaims{
		Subject:   callerID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseCallerToken verifies the token against secret at time now and
// returns the caller id it carries. Only HS256 is accepted.
func ParseCallerToken(tokenString, secret string, now time.Time) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
