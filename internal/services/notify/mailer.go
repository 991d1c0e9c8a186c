// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/clubworks/memberd/internal/config"
	"github.com/clubworks/memberd/internal/models"
	"github.com/wneessen/go-mail"
)

// Mailer delivers notifications via SMTP.
type Mailer struct {
	cfg        *config.SMTPConfig
	adminEmail string
	baseURL    string
}

// NewMailer creates an SMTP-backed notifier.
func NewMailer(cfg *config.SMTPConfig, adminEmail, baseURL string) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Mailer{
		cfg:        cfg,
		adminEmail: adminEmail,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendVerificationToken mails the verification token to the registrant.
func (m *Mailer) SendVerificationToken(ctx context.Context, member *models.Member, token string) error {
	verifyURL := fmt.Sprintf("%s/api/auth/email-check/%s/%s", m.baseURL, member.ID, token)
	body := fmt.Sprintf(
		"Hello %s,\n\nplease confirm your email address by opening the link below:\n\n%s\n",
		member.Name, verifyURL)

	return m.send(ctx, member.PersonalEmail, "Confirm your email address", body)
}

// SendApprovalNotice mails the member that their account has been approved.
func (m *Mailer) SendApprovalNotice(ctx context.Context, member *models.Member) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nyour membership has been approved. You can now sign in.\n",
		member.Name)

	return m.send(ctx, member.PersonalEmail, "Membership approved", body)
}

// NotifyAdminsOfPendingReview mails the admin address that a candidate has
// confirmed their email and is ready for review.
func (m *Mailer) NotifyAdminsOfPendingReview(ctx context.Context, member *models.Member) error {
	if m.adminEmail == "" {
		return fmt.Errorf("no admin notification address configured")
	}

	body := fmt.Sprintf(
		"%s (%s) confirmed their email address and is waiting for approval.\n",
		member.Name, member.PersonalEmail)

	return m.send(ctx, m.adminEmail, "Member waiting for approval", body)
}

// send sends an email via SMTP using go-mail.
func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(m.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}

	if m.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if m.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
