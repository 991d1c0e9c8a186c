// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/events"
	"github.com/clubworks/memberd/internal/middleware"
	"github.com/labstack/echo/v4"
)

// ListUnapproved returns the members whose email is verified but whose
// account still awaits approval, plus those not yet verified at all.
func (h *Handlers) ListUnapproved(c echo.Context) error {
	members, err := h.svc.ListUnapproved(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// Approve confirms a pending member's account.
func (h *Handlers) Approve(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apperr.BadRequest("missing id")
	}

	member, err := h.svc.Approve(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, member)
}

// ToAdmin grants administrative privilege to the requesting member. Any
// authenticated member can self-promote; the endpoint exists to bootstrap the
// first administrators.
func (h *Handlers) ToAdmin(c echo.Context) error {
	session := middleware.SessionFrom(c)

	if err := h.svc.GrantAdmin(c.Request().Context(), session.MemberID); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "granted"})
}

// Events streams membership lifecycle events over SSE until the client
// disconnects. A periodic heartbeat keeps intermediaries from dropping the
// idle connection.
func (h *Handlers) Events(c echo.Context) error {
	hub := h.svc.Hub()
	if hub == nil {
		return apperr.NotFound("event stream not enabled")
	}

	session := middleware.SessionFrom(c)
	ch := hub.Subscribe(session.MemberID)
	defer hub.Unsubscribe(ch)

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)
	res.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case frame, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := res.Write([]byte(frame)); err != nil {
				return nil
			}
			res.Flush()
		case <-heartbeat.C:
			if _, err := res.Write([]byte(events.Heartbeat)); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}
