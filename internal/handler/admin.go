package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// AdminHandler serves /api/admin.
type AdminHandler struct {
	Base
	Invitations *service.InvitationLedger
}

// CreateInvitation issues a role-granting code.
func (h *AdminHandler) CreateInvitation(c echo.Context) error {
	var req service.CreateInvitationInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	inv, err := h.Invitations.Create(ctx, caller(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"code":      inv.Code,
		"role":      inv.GrantedRole,
		"expiresAt": inv.ExpiresAt,
		"maxUses":   inv.MaxUses,
	})
}

// Redemptions lists the accounts that redeemed a code.
func (h *AdminHandler) Redemptions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	out, err := h.Invitations.Redemptions(ctx, caller(c), c.Param("code"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
