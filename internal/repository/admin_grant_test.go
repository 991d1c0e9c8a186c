// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAdminGrant(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	member := testutil.NewApprovedMember(t, repo, "admin")

	require.NoError(t, repo.CreateAdminGrant(ctx, member.ID))

	has, err := repo.HasAdminGrant(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestCreateAdminGrant_Idempotent(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	member := testutil.NewApprovedMember(t, repo, "admin")

	require.NoError(t, repo.CreateAdminGrant(ctx, member.ID))
	require.NoError(t, repo.CreateAdminGrant(ctx, member.ID))

	has, err := repo.HasAdminGrant(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestHasAdminGrant_None(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	member := testutil.NewTestMember(t, repo, "plain")

	has, err := repo.HasAdminGrant(ctx, member.ID)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGetAdminGrant(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	member := testutil.NewApprovedMember(t, repo, "admin")
	require.NoError(t, repo.CreateAdminGrant(ctx, member.ID))

	grant, err := repo.GetAdminGrant(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.ID, grant.MemberID)
	assert.False(t, grant.CreatedAt.IsZero())

	_, err = repo.GetAdminGrant(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
