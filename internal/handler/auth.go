package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/middleware"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// AuthHandler bundles dependencies for /api/auth endpoints.
type AuthHandler struct {
	Base
	Credentials *service.CredentialStore
	Sessions    *service.SessionManager
	Invitations *service.InvitationLedger
}

// ----- DTOs -----

type verifyReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type invitationReq struct {
	Code string `json:"code"`
}

type loginResp struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      model.Account `json:"user"`
}

// Register creates an unverified account and mails its verification code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Credentials.Register(ctx, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"userId":  res.AccountID,
		"message": "registration successful, check your email for the verification code",
	})
}

// Verify confirms email ownership with the mailed code.
func (h *AuthHandler) Verify(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	already, err := h.Credentials.VerifyEmail(ctx, req.Email, req.Code)
	if err != nil {
		return h.fail(c, err)
	}
	msg := "email verified"
	if already {
		msg = "email already verified"
	}
	return c.JSON(http.StatusOK, echo.Map{"message": msg})
}

// Login checks credentials and opens a session.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.Credentials.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return h.fail(c, err)
	}
	tok, err := h.Sessions.Issue(ctx, acc, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, loginResp{Token: tok.Token, ExpiresAt: tok.ExpiresAt, User: acc})
}

// Logout revokes the presented token.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Sessions.Revoke(ctx, middleware.BearerToken(c)); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// Profile returns the caller's account.
func (h *AuthHandler) Profile(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	acc, err := h.Credentials.Profile(ctx, caller(c).ID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": acc})
}

// UseInvitation redeems an invitation code for the caller.
func (h *AuthHandler) UseInvitation(c echo.Context) error {
	var req invitationReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	role, err := h.Invitations.Redeem(ctx, req.Code, caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"role": role, "message": "role updated to " + string(role)})
}
