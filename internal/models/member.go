// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Roles a member can hold during a club generation.
const (
	RoleMember        = "member"
	RoleManager       = "manager"
	RolePresident     = "president"
	RoleVicePresident = "vice-president"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleMember, RoleManager, RolePresident, RoleVicePresident:
		return true
	}
	return false
}

// Member is a club member's registration record. PasswordHash and EmailToken
// are never serialized; the lifecycle service owns the two confirmation flags
// and the verification token, profile fields belong to the member.
type Member struct { //nolint:govet // fieldalignment not critical for models
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	CellPhone        string     `db:"cell_phone" json:"cell_phone"`
	PersonalEmail    string     `db:"personal_email" json:"personal_email"`
	OrgEmail         *string    `db:"org_email" json:"org_email,omitempty"`
	StudentID        string     `db:"student_id" json:"student_id"`
	Major            string     `db:"major" json:"major"`
	Gender           string     `db:"gender" json:"gender"`
	Company          *string    `db:"company" json:"company,omitempty"`
	ExternalHandle   *string    `db:"external_handle" json:"external_handle,omitempty"`
	PasswordHash     string     `db:"password_hash" json:"-"`
	EmailToken       string     `db:"email_token" json:"-"`
	EmailConfirmed   bool       `db:"email_confirmed" json:"email_confirmed"`
	AccountConfirmed bool       `db:"account_confirmed" json:"account_confirmed"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
	Activities       []Activity `db:"-" json:"activities"`
}

// Activity is one (generation, role) entry of a member's activity history.
type Activity struct { //nolint:govet // fieldalignment not critical for models
	ID         int64  `db:"id" json:"-"`
	MemberID   string `db:"member_id" json:"-"`
	Generation int    `db:"generation" json:"generation"`
	Role       string `db:"role" json:"role"`
}
