// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package membership

import (
	"context"
	"errors"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/events"
	"github.com/clubworks/memberd/internal/models"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/credential"
	"github.com/clubworks/memberd/internal/services/verification"
	"github.com/google/uuid"
)

// The conflict response deliberately carries no field-level detail so that
// registration cannot be used to enumerate existing phone numbers, emails,
// or student IDs.
const conflictMessage = "an account with the given details already exists"

// RegisterParams holds the validated fields for a new registration.
type RegisterParams struct { //nolint:govet // fieldalignment not critical here
	Name           string
	CellPhone      string
	PersonalEmail  string
	OrgEmail       *string
	Password       string
	Gender         string
	StudentID      string
	Major          string
	Company        *string
	ExternalHandle *string
	Activities     []models.Activity
}

// Register creates an unconfirmed account: conflict check, password hash,
// fresh verification token, both lifecycle flags false. The verification
// token is dispatched to the registrant; delivery failure is logged only.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Member, error) {
	if err := s.checkConflicts(ctx, params); err != nil {
		return nil, err
	}

	passwordHash, err := credential.Hash(params.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password", err)
	}

	emailToken, err := verification.Generate()
	if err != nil {
		return nil, apperr.Internal("failed to generate verification token", err)
	}

	member := &models.Member{
		ID:             uuid.NewString(),
		Name:           params.Name,
		CellPhone:      params.CellPhone,
		PersonalEmail:  params.PersonalEmail,
		OrgEmail:       params.OrgEmail,
		StudentID:      params.StudentID,
		Major:          params.Major,
		Gender:         params.Gender,
		Company:        params.Company,
		ExternalHandle: params.ExternalHandle,
		PasswordHash:   passwordHash,
		EmailToken:     emailToken,
		Activities:     params.Activities,
	}

	if err := s.repo.CreateMember(ctx, member); err != nil {
		// The unique indexes backstop the conflict check under concurrent
		// registration; the caller still only sees the generic conflict.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict(conflictMessage)
		}
		return nil, apperr.Internal("failed to create account", err)
	}

	s.dispatch("verification_token", member.ID,
		s.notifier.SendVerificationToken(ctx, member, emailToken))
	s.publish(events.TypeRegistered, member.ID, member.Name)

	return member, nil
}

type uniqueCheck struct {
	field repository.UniqueField
	value string
}

// checkConflicts looks up each unique field independently; absent optional
// fields are skipped. Any hit yields the generic conflict error.
func (s *Service) checkConflicts(ctx context.Context, params RegisterParams) error {
	checks := []uniqueCheck{
		{repository.FieldCellPhone, params.CellPhone},
		{repository.FieldPersonalEmail, params.PersonalEmail},
		{repository.FieldStudentID, params.StudentID},
	}
	if params.OrgEmail != nil {
		checks = append(checks, uniqueCheck{repository.FieldOrgEmail, *params.OrgEmail})
	}
	if params.ExternalHandle != nil {
		checks = append(checks, uniqueCheck{repository.FieldExternalHandle, *params.ExternalHandle})
	}

	for _, check := range checks {
		exists, err := s.repo.MemberExistsByField(ctx, check.field, check.value)
		if err != nil {
			return apperr.Internal("storage failure", err)
		}
		if exists {
			return apperr.Conflict(conflictMessage)
		}
	}

	return nil
}
