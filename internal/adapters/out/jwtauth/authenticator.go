// Package jwtauth verifies and mints HS256 bearer tokens. Token issuance in
// production belongs to the external identity provider; Mint exists for
// development tooling and tests.
package jwtauth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shiptrack/internal/core/domain/model/identity"
	"shiptrack/internal/core/domain/model/kernel"
	"shiptrack/internal/core/ports"
	"shiptrack/internal/pkg/errs"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	_ ports.Authenticator = (*Authenticator)(nil)

	signingMethod = jwt.SigningMethodHS256
)

// Config holds the shared secret and the expected issuer.
type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims are the token claims: the subject is the user id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator implements ports.Authenticator.
type Authenticator struct {
	cfg Config
}

func New(cfg Config) (*Authenticator, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("jwt issuer is required")
	}
	return &Authenticator{cfg: cfg}, nil
}

// Verify parses and validates the token. Any failure is reported as
// errs.UnauthorizedError carrying the cause.
func (a *Authenticator) Verify(_ context.Context, token string) (identity.Principal, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return identity.Principal{}, errs.NewUnauthorizedErrorWithCause("anonymous", "authenticate",
			fmt.Errorf("missing bearer token"))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (any, error) {
			if t.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", t.Header["alg"])
			}
			return []byte(a.cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(a.cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return identity.Principal{}, errs.NewUnauthorizedErrorWithCause("anonymous", "authenticate", err)
	}

	userID, err := kernel.UUIDFromString(claims.Subject)
	if err != nil {
		return identity.Principal{}, errs.NewUnauthorizedErrorWithCause("anonymous", "authenticate", err)
	}
	role, err := identity.ParseRole(claims.Role)
	if err != nil {
		return identity.Principal{}, errs.NewUnauthorizedErrorWithCause(userID, "authenticate", err)
	}

	return identity.NewPrincipal(userID, role)
}

// Mint issues a token for principal valid from now for the configured TTL.
func (a *Authenticator) Mint(principal identity.Principal, now time.Time) (string, error) {
	if err := principal.Validate(); err != nil {
		return "", err
	}
	ttl := a.cfg.TTL
	if ttl <= 0 {
		return "", fmt.Errorf("jwt ttl must be positive")
	}

	claims := Claims{
		Role: principal.Role().String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID().String(),
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(a.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
