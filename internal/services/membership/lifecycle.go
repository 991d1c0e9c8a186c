// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package membership

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/events"
	"github.com/clubworks/memberd/internal/models"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/credential"
	"github.com/clubworks/memberd/internal/services/verification"
	"golang.org/x/crypto/bcrypt"
)

// dummyHash is used for constant-time login to prevent timing attacks.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// VerifyEmail confirms ownership of the registered email address. The
// supplied token must match the stored one exactly; on success the token is
// cleared and can never be replayed.
func (s *Service) VerifyEmail(ctx context.Context, id, suppliedToken string) (*models.Member, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}

	if !verification.Matches(member.EmailToken, suppliedToken) {
		return nil, apperr.Unauthorized("invalid verification token")
	}

	member.EmailToken = ""
	member.EmailConfirmed = true

	if err := s.repo.UpdateMember(ctx, member); err != nil {
		return nil, storageErr(err)
	}

	slog.Info("email_verified", "member_id", member.ID)
	s.publish(events.TypeEmailVerified, member.ID, member.Name)

	if !member.AccountConfirmed {
		s.dispatch("pending_review", member.ID,
			s.notifier.NotifyAdminsOfPendingReview(ctx, member))
	}

	return member, nil
}

// Approve marks a member's account as confirmed. An unconfirmed email and an
// already-approved account are distinct guard violations: the former is an
// authorization failure, the latter a conflict.
func (s *Service) Approve(ctx context.Context, id string) (*models.Member, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}

	if !member.EmailConfirmed {
		return nil, apperr.Unauthorized("email not confirmed")
	}
	if member.AccountConfirmed {
		return nil, apperr.Conflict("account already approved")
	}

	member.AccountConfirmed = true

	if err := s.repo.UpdateMember(ctx, member); err != nil {
		return nil, storageErr(err)
	}

	slog.Info("account_approved", "member_id", member.ID)
	s.publish(events.TypeApproved, member.ID, member.Name)

	s.dispatch("approval_notice", member.ID,
		s.notifier.SendApprovalNotice(ctx, member))

	return member, nil
}

// Login verifies the credentials and issues a session token. Unknown email,
// wrong password, and unconfirmed email all yield the same unauthorized kind.
func (s *Service) Login(ctx context.Context, email, password string) (string, time.Time, *models.Member, error) {
	member, err := s.repo.GetMemberByPersonalEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform a bcrypt comparison so unknown
			// emails are not distinguishable by response time.
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "account_not_found")
			return "", time.Time{}, nil, apperr.Unauthorized("invalid credentials")
		}
		return "", time.Time{}, nil, apperr.Internal("storage failure", err)
	}

	if !credential.Verify(password, member.PasswordHash) {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return "", time.Time{}, nil, apperr.Unauthorized("invalid credentials")
	}

	if !member.EmailConfirmed {
		slog.Warn("login_failed", "email", email, "reason", "email_not_confirmed")
		return "", time.Time{}, nil, apperr.Unauthorized("email not confirmed")
	}

	signed, expiresAt, err := s.tokens.Issue(member.ID, member.Name)
	if err != nil {
		return "", time.Time{}, nil, apperr.Internal("failed to issue session token", err)
	}

	slog.Info("login_success", "member_id", member.ID)

	return signed, expiresAt, member, nil
}

// GetMember retrieves a single member.
func (s *Service) GetMember(ctx context.Context, id string) (*models.Member, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}
	return member, nil
}

// ListMembers returns all members.
func (s *Service) ListMembers(ctx context.Context) ([]models.Member, error) {
	members, err := s.repo.ListMembers(ctx)
	if err != nil {
		return nil, apperr.Internal("storage failure", err)
	}
	return members, nil
}

// ListUnapproved returns members still waiting for administrative approval.
func (s *Service) ListUnapproved(ctx context.Context) ([]models.Member, error) {
	members, err := s.repo.ListUnapproved(ctx)
	if err != nil {
		return nil, apperr.Internal("storage failure", err)
	}
	return members, nil
}
