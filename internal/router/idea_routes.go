package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/handler"
	"github.com/iliyamo/crowdsource-ideas/internal/middleware"
)

// RegisterIdeas registers the idea board under /api/ideas. Reads accept an
// optional token so authors and staff see their non-public ideas.
func RegisterIdeas(e *echo.Echo, h *handler.IdeaHandler, v middleware.TokenValidator, log logrus.FieldLogger) {
	g := e.Group("/api/ideas")
	g.GET("", h.List, middleware.OptionalAuth(v))
	g.GET("/:id/comments", h.ListComments, middleware.OptionalAuth(v))

	auth := g.Group("", middleware.Authenticate(v, log))
	auth.POST("", h.Submit)
	auth.POST("/:id/vote", h.Vote)
	auth.POST("/:id/comments", h.AddComment)
	auth.DELETE("/:id", h.Delete)
}
