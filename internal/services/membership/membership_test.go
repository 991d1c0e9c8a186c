// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package membership_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/events"
	"github.com/clubworks/memberd/internal/models"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/credential"
	"github.com/clubworks/memberd/internal/services/membership"
	"github.com/clubworks/memberd/internal/services/token"
	"github.com/clubworks/memberd/internal/services/verification"
	"github.com/clubworks/memberd/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureNotifier records dispatched notifications and can be switched into
// failure mode.
type captureNotifier struct {
	mu        sync.Mutex
	tokens    map[string]string
	approvals []string
	reviews   []string
	fail      bool
}

func newCaptureNotifier() *captureNotifier {
	return &captureNotifier{tokens: make(map[string]string)}
}

func (n *captureNotifier) SendVerificationToken(_ context.Context, member *models.Member, verificationToken string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.tokens[member.ID] = verificationToken
	return nil
}

func (n *captureNotifier) SendApprovalNotice(_ context.Context, member *models.Member) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.approvals = append(n.approvals, member.ID)
	return nil
}

func (n *captureNotifier) NotifyAdminsOfPendingReview(_ context.Context, member *models.Member) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("smtp unreachable")
	}
	n.reviews = append(n.reviews, member.ID)
	return nil
}

func (n *captureNotifier) tokenFor(memberID string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[memberID]
}

func newTestService(t *testing.T) (*membership.Service, *repository.Repository, *captureNotifier) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	tokens, err := token.NewService("test-signing-key", token.DefaultTTL, token.DefaultRenewThreshold)
	require.NoError(t, err)
	notifier := newCaptureNotifier()
	svc := membership.NewService(repo, tokens, notifier, events.NewHub())
	return svc, repo, notifier
}

func registerParams(name, phone, email, studentID string) membership.RegisterParams {
	return membership.RegisterParams{
		Name:          name,
		CellPhone:     phone,
		PersonalEmail: email,
		Password:      "initial-password",
		Gender:        "female",
		StudentID:     studentID,
		Major:         "computer science",
		Activities: []models.Activity{
			{Generation: 2, Role: models.RoleMember},
		},
	}
}

func TestRegister(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	assert.NotEmpty(t, member.ID)
	assert.False(t, member.EmailConfirmed)
	assert.False(t, member.AccountConfirmed)
	assert.Len(t, member.EmailToken, verification.TokenLength)

	// Password is stored hashed, never verbatim.
	assert.NotEqual(t, "initial-password", member.PasswordHash)
	assert.True(t, credential.Verify("initial-password", member.PasswordHash))

	// The verification token went out to the registrant.
	assert.Equal(t, member.EmailToken, notifier.tokenFor(member.ID))

	stored, err := repo.GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, member.EmailToken, stored.EmailToken)
	require.Len(t, stored.Activities, 1)
	assert.Equal(t, 2, stored.Activities[0].Generation)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerParams("First", "01011112222", "taken@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerParams("Second", "01033334444", "taken@example.com", "20230002"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// The conflict must not disclose which field collided.
	assert.NotContains(t, apperr.MessageOf(err), "email")
}

func TestRegister_DuplicateCellPhone(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerParams("First", "01011112222", "first@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerParams("Second", "01011112222", "second@example.com", "20230002"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NotContains(t, apperr.MessageOf(err), "phone")
}

func TestRegister_DuplicateStudentID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerParams("First", "01011112222", "first@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerParams("Second", "01033334444", "second@example.com", "20230001"))
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestRegister_NotifierFailureIgnored(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	notifier.fail = true

	member, err := svc.Register(context.Background(), registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	// The account exists despite the failed delivery.
	_, err = repo.GetMemberByID(context.Background(), member.ID)
	assert.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	verified, err := svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)
	assert.True(t, verified.EmailConfirmed)
	assert.Empty(t, verified.EmailToken)
	assert.False(t, verified.AccountConfirmed)

	stored, err := repo.GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailConfirmed)
	assert.Empty(t, stored.EmailToken)

	// Admins hear about the new pending review.
	assert.Contains(t, notifier.reviews, member.ID)
}

func TestVerifyEmail_WrongToken(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, member.ID, "wrongwrongwrongwrongwrongwrong12")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// Nothing changed.
	stored, err := repo.GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailConfirmed)
	assert.NotEmpty(t, stored.EmailToken)
}

func TestVerifyEmail_TokenNotReplayable(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	issued := notifier.tokenFor(member.ID)
	_, err = svc.VerifyEmail(ctx, member.ID, issued)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, member.ID, issued)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestVerifyEmail_UnknownMember(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.VerifyEmail(context.Background(), "no-such-id", "token")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestApprove(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, approved.AccountConfirmed)
	assert.Contains(t, notifier.approvals, member.ID)
}

func TestApprove_EmailNotConfirmed(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, member.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestApprove_AlreadyApproved(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, member.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, member.ID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestLogin(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)

	signed, expiresAt, got, err := svc.Login(ctx, "alex@example.com", "initial-password")
	require.NoError(t, err)
	assert.NotEmpty(t, signed)
	assert.False(t, expiresAt.IsZero())
	assert.Equal(t, member.ID, got.ID)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, _, _, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	assert.Equal(t, "invalid credentials", apperr.MessageOf(err))
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alex@example.com", "wrong-password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	// Identical message for unknown email and wrong password.
	assert.Equal(t, "invalid credentials", apperr.MessageOf(err))
}

func TestLogin_EmailNotConfirmed(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alex@example.com", "initial-password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestUpdateProfile_Fields(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)

	major := "physics"
	company := "acme corp"
	updated, err := svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{
		Major:   &major,
		Company: &company,
	})
	require.NoError(t, err)
	assert.Equal(t, "physics", updated.Major)
	require.NotNil(t, updated.Company)
	assert.Equal(t, "acme corp", *updated.Company)

	stored, err := repo.GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Equal(t, "physics", stored.Major)
	// Untouched fields survive.
	assert.True(t, stored.EmailConfirmed)
	assert.Equal(t, "Alex", stored.Name)
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{
		OldPassword: "initial-password",
		NewPassword: "brand-new-password",
	})
	require.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alex@example.com", "brand-new-password")
	assert.NoError(t, err)

	_, _, _, err = svc.Login(ctx, "alex@example.com", "initial-password")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestUpdateProfile_PasswordPairRequired(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{OldPassword: "initial-password"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))

	_, err = svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{NewPassword: "brand-new-password"})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestUpdateProfile_PasswordMustChange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{
		OldPassword: "initial-password",
		NewPassword: "initial-password",
	})
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestUpdateProfile_WrongOldPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{
		OldPassword: "not-my-password",
		NewPassword: "brand-new-password",
	})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestUpdateProfile_EmailChangeResetsConfirmation(t *testing.T) {
	svc, repo, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, member.ID)
	require.NoError(t, err)

	newEmail := "alex.new@example.com"
	updated, err := svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{PersonalEmail: &newEmail})
	require.NoError(t, err)

	assert.Equal(t, newEmail, updated.PersonalEmail)
	assert.False(t, updated.EmailConfirmed)
	// Approval survives an email change; only the address needs re-proving.
	assert.True(t, updated.AccountConfirmed)

	// A fresh token was issued and dispatched to the new address.
	stored, err := repo.GetMemberByID(ctx, member.ID)
	require.NoError(t, err)
	assert.Len(t, stored.EmailToken, verification.TokenLength)
	assert.Equal(t, stored.EmailToken, notifier.tokenFor(member.ID))

	// The new token verifies the new address.
	verified, err := svc.VerifyEmail(ctx, member.ID, stored.EmailToken)
	require.NoError(t, err)
	assert.True(t, verified.EmailConfirmed)
}

func TestUpdateProfile_SameEmailNoReset(t *testing.T) {
	svc, _, notifier := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)
	_, err = svc.VerifyEmail(ctx, member.ID, notifier.tokenFor(member.ID))
	require.NoError(t, err)

	same := "alex@example.com"
	updated, err := svc.UpdateProfile(ctx, member.ID, membership.UpdateParams{PersonalEmail: &same})
	require.NoError(t, err)
	assert.True(t, updated.EmailConfirmed)
}

func TestUpdateProfile_DuplicateUniqueField(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerParams("First", "01011112222", "first@example.com", "20230001"))
	require.NoError(t, err)
	second, err := svc.Register(ctx, registerParams("Second", "01033334444", "second@example.com", "20230002"))
	require.NoError(t, err)

	taken := "first@example.com"
	_, err = svc.UpdateProfile(ctx, second.ID, membership.UpdateParams{PersonalEmail: &taken})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.NotContains(t, apperr.MessageOf(err), "email")
}

func TestGrantAdmin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	require.NoError(t, svc.GrantAdmin(ctx, member.ID))

	isAdmin, err := svc.IsAdmin(ctx, member.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Granting twice is not an error.
	assert.NoError(t, svc.GrantAdmin(ctx, member.ID))
}

func TestGrantAdmin_UnknownMember(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.GrantAdmin(context.Background(), "no-such-id")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMemberJSON_NeverLeaksSecrets(t *testing.T) {
	svc, _, _ := newTestService(t)

	member, err := svc.Register(context.Background(), registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	payload, err := json.Marshal(member)
	require.NoError(t, err)

	assert.NotContains(t, string(payload), member.PasswordHash)
	assert.NotContains(t, string(payload), member.EmailToken)
	assert.NotContains(t, string(payload), "password")
	assert.NotContains(t, string(payload), "token")
}

func TestLifecycleEventsPublished(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	tokens, err := token.NewService("test-signing-key", token.DefaultTTL, token.DefaultRenewThreshold)
	require.NoError(t, err)
	hub := events.NewHub()
	notifier := newCaptureNotifier()
	svc := membership.NewService(repo, tokens, notifier, hub)

	ch := hub.Subscribe("admin-1")
	defer hub.Unsubscribe(ch)

	ctx := context.Background()
	member, err := svc.Register(ctx, registerParams("Alex", "01011112222", "alex@example.com", "20230001"))
	require.NoError(t, err)

	frame := <-ch
	assert.Contains(t, frame, "event: registered\n")
	assert.Contains(t, frame, member.ID)
}
