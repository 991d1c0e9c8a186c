// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify delivers lifecycle notifications: the verification token to
// a registrant, the approval notice to a member, and the pending-review alert
// to administrators. Delivery failures are the caller's to log and swallow;
// they never fail a lifecycle operation.
package notify

import (
	"context"
	"log/slog"

	"github.com/clubworks/memberd/internal/models"
)

// Notifier dispatches membership lifecycle notifications.
type Notifier interface {
	SendVerificationToken(ctx context.Context, member *models.Member, token string) error
	SendApprovalNotice(ctx context.Context, member *models.Member) error
	NotifyAdminsOfPendingReview(ctx context.Context, member *models.Member) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used when no SMTP server is configured, e.g. in development.
type LogNotifier struct{}

func (LogNotifier) SendVerificationToken(_ context.Context, member *models.Member, token string) error {
	slog.Info("notify_verification_token", "member_id", member.ID, "email", member.PersonalEmail, "token", token)
	return nil
}

func (LogNotifier) SendApprovalNotice(_ context.Context, member *models.Member) error {
	slog.Info("notify_approval", "member_id", member.ID, "email", member.PersonalEmail)
	return nil
}

func (LogNotifier) NotifyAdminsOfPendingReview(_ context.Context, member *models.Member) error {
	slog.Info("notify_pending_review", "member_id", member.ID, "email", member.PersonalEmail)
	return nil
}
