// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/clubworks/memberd/internal/database"
	"github.com/clubworks/memberd/internal/models"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/credential"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

var memberSeq atomic.Int64

// testPasswordHash hashes the shared fixture password once; bcrypt is too
// slow to run per fixture.
var testPasswordHash = sync.OnceValue(func() string {
	hash, err := credential.Hash("test-password")
	if err != nil {
		panic(err)
	}
	return hash
})

// NewTestMember creates a member with unique contact fields. The password is
// "test-password" unless the member struct is adjusted afterwards.
func NewTestMember(t *testing.T, repo *repository.Repository, name string) *models.Member {
	t.Helper()
	ctx := context.Background()

	seq := memberSeq.Add(1)

	member := &models.Member{
		ID:            uuid.NewString(),
		Name:          name,
		CellPhone:     fmt.Sprintf("010%08d", seq),
		PersonalEmail: fmt.Sprintf("%s-%d@example.com", name, seq),
		StudentID:     fmt.Sprintf("%08d", seq),
		Major:         "computer science",
		Gender:        "female",
		PasswordHash:  testPasswordHash(),
		EmailToken:    "",
		Activities: []models.Activity{
			{Generation: 1, Role: models.RoleMember},
		},
	}

	require.NoError(t, repo.CreateMember(ctx, member))
	return member
}

// NewVerifiedMember creates a member whose email is confirmed.
func NewVerifiedMember(t *testing.T, repo *repository.Repository, name string) *models.Member {
	t.Helper()
	member := NewTestMember(t, repo, name)
	member.EmailConfirmed = true
	require.NoError(t, repo.UpdateMember(context.Background(), member))
	return member
}

// NewApprovedMember creates a member who passed verification and approval.
func NewApprovedMember(t *testing.T, repo *repository.Repository, name string) *models.Member {
	t.Helper()
	member := NewTestMember(t, repo, name)
	member.EmailConfirmed = true
	member.AccountConfirmed = true
	require.NoError(t, repo.UpdateMember(context.Background(), member))
	return member
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
