// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/clubworks/memberd/internal/models"
)

// CreateAdminGrant records an administrative grant for a member. Granting the
// same member twice is a no-op; the unique index keeps at most one grant.
func (r *Repository) CreateAdminGrant(ctx context.Context, memberID string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_grants (member_id, created_at) VALUES (?, ?)
		ON CONFLICT (member_id) DO NOTHING`,
		memberID, time.Now().UTC())
	return wrapError(err)
}

// HasAdminGrant reports whether a member holds an administrative grant.
func (r *Repository) HasAdminGrant(ctx context.Context, memberID string) (bool, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM admin_grants WHERE member_id = ?`, memberID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAdminGrant retrieves the grant for a member.
func (r *Repository) GetAdminGrant(ctx context.Context, memberID string) (*models.AdminGrant, error) {
	var grant models.AdminGrant
	err := r.db.GetContext(ctx, &grant,
		`SELECT id, member_id, created_at FROM admin_grants WHERE member_id = ?`, memberID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &grant, nil
}
