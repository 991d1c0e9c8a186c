// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// AdminGrant links a member to elevated privilege. Presence of a grant is the
// sole authorization credential for admin-only operations; a member holds at
// most one grant.
type AdminGrant struct {
	ID        int64     `db:"id" json:"id"`
	MemberID  string    `db:"member_id" json:"member_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
