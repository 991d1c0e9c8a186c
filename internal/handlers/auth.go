// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"regexp"

	"github.com/clubworks/memberd/internal/apperr"
	"github.com/clubworks/memberd/internal/middleware"
	"github.com/clubworks/memberd/internal/models"
	"github.com/clubworks/memberd/internal/services/membership"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/labstack/echo/v4"
)

var (
	cellPhonePattern = regexp.MustCompile(`^\d{11}$`)
	studentIDPattern = regexp.MustCompile(`^\d{8}$`)
)

// activityRequest is one club generation a member took part in.
type activityRequest struct {
	Generation int    `json:"generation"`
	Role       string `json:"role"`
}

func (r activityRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Generation, validation.Required, validation.Min(1)),
		validation.Field(&r.Role, validation.Required, validation.By(validRole)),
	)
}

func validRole(value interface{}) error {
	role, _ := value.(string)
	if !models.ValidRole(role) {
		return validation.NewError("validation_invalid_role", "must be a valid club role")
	}
	return nil
}

// RegisterRequest is the payload for creating a new account.
type RegisterRequest struct {
	Name           string            `json:"name"`
	CellPhone      string            `json:"cellPhone"`
	PersonalEmail  string            `json:"email"`
	OrgEmail       *string           `json:"orgEmail"`
	Password       string            `json:"password"`
	Gender         string            `json:"gender"`
	StudentID      string            `json:"studentId"`
	Major          string            `json:"major"`
	Company        *string           `json:"company"`
	ExternalHandle *string           `json:"externalHandle"`
	Activities     []activityRequest `json:"activities"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 40)),
		validation.Field(&r.CellPhone, validation.Required, validation.Match(cellPhonePattern)),
		validation.Field(&r.PersonalEmail, validation.Required, is.Email),
		validation.Field(&r.OrgEmail, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.Gender, validation.Required, validation.In("male", "female")),
		validation.Field(&r.StudentID, validation.Required, validation.Match(studentIDPattern)),
		validation.Field(&r.Major, validation.Required),
		validation.Field(&r.Activities, validation.Required),
	)
}

// Register creates a new unconfirmed account and sends the verification token.
func (h *Handlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return apperr.BadRequest(err.Error())
	}

	activities := make([]models.Activity, 0, len(req.Activities))
	for _, a := range req.Activities {
		activities = append(activities, models.Activity{
			Generation: a.Generation,
			Role:       a.Role,
		})
	}

	member, err := h.svc.Register(c.Request().Context(), membership.RegisterParams{
		Name:           req.Name,
		CellPhone:      req.CellPhone,
		PersonalEmail:  req.PersonalEmail,
		OrgEmail:       req.OrgEmail,
		Password:       req.Password,
		Gender:         req.Gender,
		StudentID:      req.StudentID,
		Major:          req.Major,
		Company:        req.Company,
		ExternalHandle: req.ExternalHandle,
		Activities:     activities,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, member)
}

// LoginRequest is the payload for opening a session.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login verifies credentials and sets the session cookie. The token is also
// returned in the body for clients that prefer the Authorization header.
func (h *Handlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return apperr.BadRequest(err.Error())
	}

	signed, expiresAt, member, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	middleware.SetSessionCookie(c, signed, expiresAt, h.secureCookies)

	return c.JSON(http.StatusOK, map[string]any{
		"token":  signed,
		"member": member,
	})
}

// Logout clears the session cookie. The token itself stays valid until its
// expiry; logout is a client-side affair.
func (h *Handlers) Logout(c echo.Context) error {
	middleware.ClearSessionCookie(c, h.secureCookies)
	return c.JSON(http.StatusOK, map[string]string{"status": "logged_out"})
}

// Check returns the account behind the current session.
func (h *Handlers) Check(c echo.Context) error {
	session := middleware.SessionFrom(c)

	member, err := h.svc.GetMember(c.Request().Context(), session.MemberID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, member)
}

// VerifyEmail confirms the email address using the token from the
// verification link.
func (h *Handlers) VerifyEmail(c echo.Context) error {
	id := c.Param("id")
	suppliedToken := c.Param("token")
	if id == "" || suppliedToken == "" {
		return apperr.BadRequest("missing id or token")
	}

	member, err := h.svc.VerifyEmail(c.Request().Context(), id, suppliedToken)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, member)
}

// ModifyRequest is the payload for profile and password changes. Absent
// fields are left untouched.
type ModifyRequest struct {
	Name           *string `json:"name"`
	CellPhone      *string `json:"cellPhone"`
	PersonalEmail  *string `json:"email"`
	OrgEmail       *string `json:"orgEmail"`
	Major          *string `json:"major"`
	Company        *string `json:"company"`
	ExternalHandle *string `json:"externalHandle"`
	OldPassword    string  `json:"oldPassword"`
	NewPassword    string  `json:"newPassword"`
}

func (r ModifyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(2, 40)),
		validation.Field(&r.CellPhone, validation.Match(cellPhonePattern)),
		validation.Field(&r.PersonalEmail, is.Email),
		validation.Field(&r.OrgEmail, is.Email),
		validation.Field(&r.Major, validation.NilOrNotEmpty),
		validation.Field(&r.NewPassword, validation.Length(8, 72)),
	)
}

// Modify updates the authenticated member's own profile.
func (h *Handlers) Modify(c echo.Context) error {
	session := middleware.SessionFrom(c)

	var req ModifyRequest
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if err := req.Validate(); err != nil {
		return apperr.BadRequest(err.Error())
	}

	member, err := h.svc.UpdateProfile(c.Request().Context(), session.MemberID, membership.UpdateParams{
		Name:           req.Name,
		CellPhone:      req.CellPhone,
		PersonalEmail:  req.PersonalEmail,
		OrgEmail:       req.OrgEmail,
		Major:          req.Major,
		Company:        req.Company,
		ExternalHandle: req.ExternalHandle,
		OldPassword:    req.OldPassword,
		NewPassword:    req.NewPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, member)
}

// UserList returns all members.
func (h *Handlers) UserList(c echo.Context) error {
	members, err := h.svc.ListMembers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// UserDetail returns a single member by id.
func (h *Handlers) UserDetail(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return apperr.BadRequest("missing id")
	}

	member, err := h.svc.GetMember(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, member)
}
