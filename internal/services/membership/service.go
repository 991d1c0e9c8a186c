// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package membership owns the account lifecycle state machine: registration,
// email verification, administrative approval, and the self-service profile
// and password updates. All transitions of the two confirmation flags and the
// verification token happen here and nowhere else.
package membership

import (
	"errors"
	"log/slog"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/events"
	"github.com/clubworks/memberd/internal/repository"
	"github.com/clubworks/memberd/internal/services/notify"
	"github.com/clubworks/memberd/internal/services/token"
)

// Service implements the account lifecycle operations.
type Service struct {
	repo     *repository.Repository
	tokens   *token.Service
	notifier notify.Notifier
	hub      *events.Hub
}

// NewService creates a membership service. The hub may be nil when no event
// streaming is wanted.
func NewService(repo *repository.Repository, tokens *token.Service, notifier notify.Notifier, hub *events.Hub) *Service {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		notifier: notifier,
		hub:      hub,
	}
}

// Hub exposes the event hub for stream handlers.
func (s *Service) Hub() *events.Hub {
	return s.hub
}

// publish fans a lifecycle event out to connected streams.
func (s *Service) publish(eventType, memberID, name string) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(events.NewEvent(eventType, memberID, name))
}

// dispatch logs a failed notification and moves on. Notification failures
// never fail the surrounding lifecycle operation.
func (s *Service) dispatch(op, memberID string, err error) {
	if err != nil {
		slog.Warn("notification_failed", "op", op, "member_id", memberID, "error", err)
	}
}

// storageErr maps persistence failures to the Internal kind; a missing record
// becomes NotFound.
func storageErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("account not found")
	}
	return apperr.Internal("storage failure", err)
}
