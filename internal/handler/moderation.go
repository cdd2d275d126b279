package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// ModerationHandler serves /api/moderator.
type ModerationHandler struct {
	Base
	Board *service.IdeaBoard
}

type statusReq struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// Pending lists ideas awaiting review.
func (h *ModerationHandler) Pending(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ideas, err := h.Board.Pending(ctx, caller(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ideas)
}

// SetStatus records a review decision.
func (h *ModerationHandler) SetStatus(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid idea id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Board.SetStatus(ctx, caller(c), id, req.Status, req.Notes); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "status": req.Status})
}

// DeleteComment removes a comment the caller wrote, or any comment for
// moderators.
func (h *ModerationHandler) DeleteComment(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid comment id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Board.DeleteComment(ctx, caller(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "comment deleted"})
}
