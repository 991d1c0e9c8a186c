// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package membership

import (
	"context"
	"errors"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/models"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/credential"
	"github.com/clubworks/memberd/internal/services/verification"
)

// UpdateParams holds the optional profile changes for a member. Nil fields
// are left untouched. OldPassword and NewPassword must be supplied together.
type UpdateParams struct { //nolint:govet // fieldalignment not critical here
	Name           *string
	CellPhone      *string
	PersonalEmail  *string
	OrgEmail       *string
	Major          *string
	Company        *string
	ExternalHandle *string
	OldPassword    string
	NewPassword    string
}

// UpdateProfile applies profile and password changes for the account owner.
// Changing the personal email resets the email confirmation and issues a new
// verification token; approval status is deliberately left untouched (a
// previously approved member keeps approval while the new address is
// unverified).
func (s *Service) UpdateProfile(ctx context.Context, id string, params UpdateParams) (*models.Member, error) {
	if (params.OldPassword == "") != (params.NewPassword == "") {
		return nil, apperr.BadRequest("old and new password must be supplied together")
	}

	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		return nil, storageErr(err)
	}

	if params.NewPassword != "" {
		if params.OldPassword == params.NewPassword {
			return nil, apperr.BadRequest("new password must differ from the old password")
		}
		if !credential.Verify(params.OldPassword, member.PasswordHash) {
			return nil, apperr.Unauthorized("wrong password")
		}
		hash, err := credential.Hash(params.NewPassword)
		if err != nil {
			return nil, apperr.Internal("failed to hash password", err)
		}
		member.PasswordHash = hash
	}

	if params.Name != nil {
		member.Name = *params.Name
	}
	if params.CellPhone != nil {
		member.CellPhone = *params.CellPhone
	}
	if params.OrgEmail != nil {
		member.OrgEmail = params.OrgEmail
	}
	if params.Major != nil {
		member.Major = *params.Major
	}
	if params.Company != nil {
		member.Company = params.Company
	}
	if params.ExternalHandle != nil {
		member.ExternalHandle = params.ExternalHandle
	}

	emailChanged := params.PersonalEmail != nil && *params.PersonalEmail != member.PersonalEmail
	var newToken string
	if emailChanged {
		member.PersonalEmail = *params.PersonalEmail
		member.EmailConfirmed = false
		newToken, err = verification.Generate()
		if err != nil {
			return nil, apperr.Internal("failed to generate verification token", err)
		}
		member.EmailToken = newToken
	}

	if err := s.repo.UpdateMember(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(conflictMessage)
		}
		return nil, storageErr(err)
	}

	if emailChanged {
		s.dispatch("verification_token", member.ID,
			s.notifier.SendVerificationToken(ctx, member, newToken))
	}

	return member, nil
}
