// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds the echo middleware for session handling and
// access control.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/token"
	"github.com/labstack/echo/v4"
)

// SessionCookie is the cookie carrying the signed session token.
const SessionCookie = "access_token"

// sessionContextKey is the echo context key for the parsed session.
const sessionContextKey = "session"

// SessionFrom returns the session attached to the request, or nil for
// anonymous requests.
func SessionFrom(c echo.Context) *token.Session {
	session, _ := c.Get(sessionContextKey).(*token.Session)
	return session
}

// SetSessionCookie attaches a fresh session cookie to the response.
func SetSessionCookie(c echo.Context, signed string, expiresAt time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c echo.Context, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionLoader parses the session token from the access_token cookie or the
// Authorization header and stores the session in the request context. Invalid
// or missing tokens leave the request anonymous; the route guards decide
// whether that is acceptable. Sessions past the renewal threshold get a fresh
// token and cookie, so an active member is never logged out mid-use.
func SessionLoader(tokens *token.Service, repo *repository.Repository, secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := tokenFromRequest(c)
			if raw == "" {
				return next(c)
			}

			session, err := tokens.Parse(raw)
			if err != nil {
				return next(c)
			}

			if tokens.ShouldRenew(session) {
				session = renewSession(c, tokens, repo, session, secure)
			}

			c.Set(sessionContextKey, session)
			return next(c)
		}
	}
}

// renewSession issues a replacement token for a session nearing expiry. If the
// member can no longer be loaded the original session is kept as-is; it will
// simply expire on schedule.
func renewSession(c echo.Context, tokens *token.Service, repo *repository.Repository, session *token.Session, secure bool) *token.Session {
	member, err := repo.GetMemberByID(c.Request().Context(), session.MemberID)
	if err != nil {
		slog.Warn("session_renewal_skipped", "member_id", session.MemberID, "error", err)
		return session
	}

	signed, expiresAt, err := tokens.Issue(member.ID, member.Name)
	if err != nil {
		slog.Warn("session_renewal_skipped", "member_id", session.MemberID, "error", err)
		return session
	}

	SetSessionCookie(c, signed, expiresAt, secure)

	renewed, err := tokens.Parse(signed)
	if err != nil {
		return session
	}

	slog.Debug("session_renewed", "member_id", member.ID)
	return renewed
}

// tokenFromRequest prefers the session cookie and falls back to a bearer
// token in the Authorization header.
func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(SessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}

	return ""
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if SessionFrom(c) == nil {
			return apperr.Unauthorized("authentication required")
		}
		return next(c)
	}
}

// RequireAdmin rejects requests whose member holds no admin grant. It implies
// RequireAuth.
func RequireAdmin(repo *repository.Repository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session := SessionFrom(c)
			if session == nil {
				return apperr.Unauthorized("authentication required")
			}

			isAdmin, err := repo.HasAdminGrant(c.Request().Context(), session.MemberID)
			if err != nil {
				return apperr.Internal("storage failure", err)
			}
			if !isAdmin {
				return apperr.Forbidden("admin privileges required")
			}

			return next(c)
		}
	}
}
