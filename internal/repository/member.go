// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/clubworks/memberd/internal/models"
	"github.com/vinovest/sqlx"
)

// UniqueField names a member column that carries a uniqueness invariant.
// Using a closed type keeps column names out of caller hands.
type UniqueField string

const (
	FieldCellPhone      UniqueField = "cell_phone"
	FieldPersonalEmail  UniqueField = "personal_email"
	FieldOrgEmail       UniqueField = "org_email"
	FieldStudentID      UniqueField = "student_id"
	FieldExternalHandle UniqueField = "external_handle"
)

const memberColumns = `id, name, cell_phone, personal_email, org_email, student_id,
	major, gender, company, external_handle, password_hash, email_token,
	email_confirmed, account_confirmed, created_at, updated_at`

// CreateMember inserts a member together with its activity history.
func (r *Repository) CreateMember(ctx context.Context, member *models.Member) error {
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO members (id, name, cell_phone, personal_email, org_email, student_id,
			major, gender, company, external_handle, password_hash, email_token,
			email_confirmed, account_confirmed, created_at, updated_at)
		VALUES (:id, :name, :cell_phone, :personal_email, :org_email, :student_id,
			:major, :gender, :company, :external_handle, :password_hash, :email_token,
			:email_confirmed, :account_confirmed, :created_at, :updated_at)`, member)
	if err != nil {
		return wrapError(err)
	}

	for i := range member.Activities {
		member.Activities[i].MemberID = member.ID
		if err := insertActivity(ctx, tx, &member.Activities[i]); err != nil {
			return wrapError(err)
		}
	}

	return tx.Commit()
}

// GetMemberByID retrieves a member and its activity history.
func (r *Repository) GetMemberByID(ctx context.Context, id string) (*models.Member, error) {
	var member models.Member
	err := r.db.GetContext(ctx, &member,
		`SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	if err := r.loadActivities(ctx, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// GetMemberByPersonalEmail retrieves a member by personal email address.
func (r *Repository) GetMemberByPersonalEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := r.db.GetContext(ctx, &member,
		`SELECT `+memberColumns+` FROM members WHERE personal_email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	if err := r.loadActivities(ctx, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// MemberExistsByField checks whether any member occupies the given unique field value.
func (r *Repository) MemberExistsByField(ctx context.Context, field UniqueField, value string) (bool, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM members WHERE `+string(field)+` = ?`, value)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpdateMember persists all mutable member columns. Activity history is not
// touched; it is written once at registration.
func (r *Repository) UpdateMember(ctx context.Context, member *models.Member) error {
	member.UpdatedAt = time.Now().UTC()
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE members SET name = :name, cell_phone = :cell_phone,
			personal_email = :personal_email, org_email = :org_email,
			student_id = :student_id, major = :major, gender = :gender,
			company = :company, external_handle = :external_handle,
			password_hash = :password_hash, email_token = :email_token,
			email_confirmed = :email_confirmed, account_confirmed = :account_confirmed,
			updated_at = :updated_at
		WHERE id = :id`, member)
	if err != nil {
		return wrapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateMemberPassword replaces a member's password hash.
func (r *Repository) UpdateMemberPassword(ctx context.Context, id, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE members SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return wrapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMembers returns all members ordered by creation date (newest first).
func (r *Repository) ListMembers(ctx context.Context) ([]models.Member, error) {
	return r.listMembers(ctx,
		`SELECT `+memberColumns+` FROM members ORDER BY created_at DESC, id`)
}

// ListUnapproved returns members still waiting for administrative approval.
func (r *Repository) ListUnapproved(ctx context.Context) ([]models.Member, error) {
	return r.listMembers(ctx,
		`SELECT `+memberColumns+` FROM members WHERE account_confirmed = 0 ORDER BY created_at, id`)
}

func (r *Repository) listMembers(ctx context.Context, query string) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, err
	}
	for i := range members {
		if err := r.loadActivities(ctx, &members[i]); err != nil {
			return nil, err
		}
	}
	return members, nil
}

func (r *Repository) loadActivities(ctx context.Context, member *models.Member) error {
	return r.db.SelectContext(ctx, &member.Activities,
		`SELECT id, member_id, generation, role FROM member_activities
		WHERE member_id = ? ORDER BY id`, member.ID)
}

func insertActivity(ctx context.Context, tx *sqlx.Tx, activity *models.Activity) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO member_activities (member_id, generation, role) VALUES (?, ?, ?)`,
		activity.MemberID, activity.Generation, activity.Role)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	activity.ID = id
	return nil
}
