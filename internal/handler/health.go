package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// HealthHandler reports liveness of the stores and the board counters.
type HealthHandler struct {
	Base
	DB       *sql.DB
	Sessions *service.SessionManager
	Board    *service.IdeaBoard
}

// Health pings the database and, when configured, Redis. A failing
// dependency answers 503.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	db, redis := "ok", "ok"
	if err := h.DB.PingContext(ctx); err != nil {
		h.Log.WithError(err).Warn("database ping failed")
		db, status, code = "down", "degraded", http.StatusServiceUnavailable
	}
	if err := h.Sessions.Ping(ctx); err != nil {
		h.Log.WithError(err).Warn("redis ping failed")
		redis, status, code = "down", "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, echo.Map{"status": status, "database": db, "redis": redis})
}

// Stats returns the board counters.
func (h *HealthHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	st, err := h.Board.Stats(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}
