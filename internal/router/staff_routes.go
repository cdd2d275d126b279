package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/handler"
	"github.com/iliyamo/crowdsource-ideas/internal/middleware"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

// RegisterModerator registers /api/moderator. Every route needs a session;
// the role gates come from the shared permission table. Deletes are
// checked per resource by the service, since authors may delete their own.
func RegisterModerator(e *echo.Echo, h *handler.ModerationHandler, ideas *handler.IdeaHandler, v middleware.TokenValidator, log logrus.FieldLogger) {
	g := e.Group("/api/moderator", middleware.Authenticate(v, log))
	g.GET("/pending-ideas", h.Pending, middleware.RequirePermission(model.OpListPending))
	g.PUT("/ideas/:id/status", h.SetStatus, middleware.RequirePermission(model.OpSetIdeaStatus))
	g.DELETE("/ideas/:id", ideas.Delete)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// RegisterAdmin registers /api/admin.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, v middleware.TokenValidator, log logrus.FieldLogger) {
	g := e.Group("/api/admin", middleware.Authenticate(v, log))
	g.POST("/invitation-codes", h.CreateInvitation, middleware.RequirePermission(model.OpCreateInvitation))
	g.GET("/invitation-codes/:code/redemptions", h.Redemptions, middleware.RequirePermission(model.OpListRedemptions))
}
