// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains the HTTP handlers for the membership API.
package handlers

import (
	"net/http"
	"strings"

	"github.com/clubworks/memberd/internal/services/membership"
	"github.com/labstack/echo/v4"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	svc *membership.Service
	// secureCookies controls the Secure attribute on session cookies; set
	// when the public base URL is https.
	secureCookies bool
}

// New creates a new Handlers instance.
func New(svc *membership.Service, baseURL string) *Handlers {
	return &Handlers{
		svc:           svc,
		secureCookies: strings.HasPrefix(baseURL, "https://"),
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
