// Package adminjwt issues and validates the JWTs the out-of-scope
// admin dashboard uses to authenticate its read-only API calls. The
// dashboard itself is a separate deployable (spec.md §1's explicit
// Non-goals); this package is the defined interface contract that
// deployable is expected to authenticate against, keyed off the same
// JWT_SECRET environment variable the scoring hot path never reads.
package adminjwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies the admin principal a token was issued for.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Service signs and verifies admin-dashboard tokens with an HMAC secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// New builds a Service. secret is AuthConfig.JWTSecret; ttl is the
// token lifetime (the admin dashboard's session length, not a scoring
// hot-path concern).
func New(secret string, ttl time.Duration, issuer string) *Service {
	return &Service{secret: []byte(secret), ttl: ttl, issuer: issuer}
}

// Issue mints a signed token for tenantID/role, valid for the
// service's configured ttl.
func (s *Service) Issue(tenantID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   tenantID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and verifies a token string, rejecting anything not
// signed with HMAC under this service's secret or past its expiry.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse admin token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid admin token claims")
	}
	return claims, nil
}
