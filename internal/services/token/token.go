// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and validates the signed session tokens that carry a
// member's identity between requests. Tokens use a sliding-expiration policy:
// a token presented with less than the renewal threshold of validity left is
// transparently replaced with a fresh full-window token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Defaults matching the configured session policy: tokens live for 7 days and
// are renewed on use once less than 3.5 days remain.
const (
	DefaultTTL            = 7 * 24 * time.Hour
	DefaultRenewThreshold = DefaultTTL / 2
)

// ErrMissingSigningKey is returned by NewService when no signing key is
// configured. Issuing unsigned tokens is never an option.
var ErrMissingSigningKey = errors.New("token signing key is required")

// ErrInvalidToken covers expired, tampered, and unparsable tokens. Callers
// treat it as "no session", not as a request failure.
var ErrInvalidToken = errors.New("invalid token")

// Session is the decoded assertion carried by a valid token.
type Session struct {
	MemberID  string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns the validity left at the given instant.
func (s *Session) Remaining(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

type claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
}

// Service signs and validates session tokens with a process-wide key passed
// in explicitly at construction.
type Service struct {
	signingKey     []byte
	ttl            time.Duration
	renewThreshold time.Duration
	now            func() time.Time
}

// NewService creates a token service. An empty signing key is a fatal
// misconfiguration and is rejected here rather than at issue time.
func NewService(signingKey string, ttl, renewThreshold time.Duration) (*Service, error) {
	if signingKey == "" {
		return nil, ErrMissingSigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if renewThreshold <= 0 {
		renewThreshold = DefaultRenewThreshold
	}
	return &Service{
		signingKey:     []byte(signingKey),
		ttl:            ttl,
		renewThreshold: renewThreshold,
		now:            time.Now,
	}, nil
}

// Issue signs a token asserting the given member identity for a full
// validity window.
func (s *Service) Issue(memberID, name string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Name: name,
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, expiresAt, nil
}

// Parse validates a raw token and returns the session it asserts. Any
// expired, tampered, or malformed token yields ErrInvalidToken.
func (s *Service) Parse(raw string) (*Session, error) {
	parsed, err := jwt.ParseWithClaims(raw, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.Subject == "" || c.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	session := &Session{
		MemberID:  c.Subject,
		Name:      c.Name,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		session.IssuedAt = c.IssuedAt.Time
	}
	return session, nil
}

// ShouldRenew reports whether a session's remaining validity has dropped
// below the renewal threshold.
func (s *Service) ShouldRenew(session *Session) bool {
	return session.Remaining(s.now()) < s.renewThreshold
}

// TTL returns the configured validity window.
func (s *Service) TTL() time.Duration {
	return s.ttl
}
