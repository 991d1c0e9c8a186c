// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package membership

import (
	"context"
	"log/slog"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/events"
)

// GrantAdmin confers administrative privilege on a member. Granting twice is
// idempotent.
func (s *Service) GrantAdmin(ctx context.Context, memberID string) error {
	member, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return storageErr(err)
	}

	if err := s.repo.CreateAdminGrant(ctx, memberID); err != nil {
		return apperr.Internal("failed to create admin grant", err)
	}

	slog.Info("admin_granted", "member_id", memberID)
	s.publish(events.TypeAdminGranted, member.ID, member.Name)
	return nil
}

// IsAdmin reports whether a member holds an administrative grant.
func (s *Service) IsAdmin(ctx context.Context, memberID string) (bool, error) {
	ok, err := s.repo.HasAdminGrant(ctx, memberID)
	if err != nil {
		return false, apperr.Internal("storage failure", err)
	}
	return ok, nil
}
