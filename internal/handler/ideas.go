package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// IdeaHandler serves the public idea board.
type IdeaHandler struct {
	Base
	Board *service.IdeaBoard
	Votes *service.VoteLedger
}

type commentReq struct {
	Text string `json:"text"`
}

// List returns the ideas visible to the caller, who may be anonymous.
func (h *IdeaHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	ideas, err := h.Board.List(ctx, viewer(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ideas)
}

// Submit stores a new idea by the caller.
func (h *IdeaHandler) Submit(c echo.Context) error {
	var req service.SubmitIdeaInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	idea, err := h.Board.Submit(ctx, caller(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": idea.ID, "status": idea.Status})
}

// Vote records the caller's vote on an idea.
func (h *IdeaHandler) Vote(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid idea id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Votes.Vote(ctx, caller(c), id, c.RealIP()); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{})
}

// AddComment attaches the caller's comment to an idea.
func (h *IdeaHandler) AddComment(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid idea id")
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	cm, err := h.Board.AddComment(ctx, caller(c), id, req.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": cm.ID})
}

// ListComments returns an idea's comments, oldest first.
func (h *IdeaHandler) ListComments(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid idea id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	comments, err := h.Board.ListComments(ctx, viewer(c), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, comments)
}

// Delete removes an idea the caller authored, or any idea for moderators.
func (h *IdeaHandler) Delete(c echo.Context) error {
	id, ok := idParam(c, "id")
	if !ok {
		return badRequest(c, "invalid idea id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Board.Delete(ctx, caller(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "idea deleted"})
}
