package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

// RequirePermission aborts with 403 unless the authenticated account's
// role may perform op. It must run after Authenticate; without an account
// it answers 401.
func RequirePermission(op model.Operation) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			acc, ok := CurrentAccount(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "missing_token", "message": "authentication required",
				})
			}
			if !acc.Role.Can(op) {
				return c.JSON(http.StatusForbidden, echo.Map{
					"error": "forbidden", "message": "insufficient permissions",
					"details": echo.Map{"allowed_roles": model.RolesFor(op)},
				})
			}
			return next(c)
		}
	}
}
