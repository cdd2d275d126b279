// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/handler"
	"github.com/iliyamo/crowdsource-ideas/internal/middleware"
)

// RegisterRoutes registers the unauthenticated operational endpoints.
// stats is wrapped by the response cache.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler, statsCache echo.MiddlewareFunc) {
	e.GET("/api/health", h.Health)
	e.GET("/api/stats", h.Stats, statsCache)
}

// RegisterAuth registers /api/auth. Register, verify and login are open;
// the rest need a session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, v middleware.TokenValidator, log logrus.FieldLogger) {
	g := e.Group("/api/auth")
	g.POST("/register", a.Register)
	g.POST("/verify", a.Verify)
	g.POST("/login", a.Login)

	auth := g.Group("", middleware.Authenticate(v, log))
	auth.POST("/logout", a.Logout)
	auth.GET("/profile", a.Profile)
	auth.POST("/use-invitation", a.UseInvitation)
}
