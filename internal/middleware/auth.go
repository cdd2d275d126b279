package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// TokenValidator resolves a bearer token to the account behind it.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (model.Account, error)
}

// BearerToken returns the token from an "Authorization: Bearer" header, or
// "" when the header is absent or malformed.
func BearerToken(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// Authenticate rejects requests without a valid session token and stores
// the authenticated account in the context for handlers to read through
// CurrentAccount. Validator failures other than a rejected token are
// logged to log and answered with 500.
func Authenticate(v TokenValidator, log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := BearerToken(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "missing_token", "message": "authentication required",
				})
			}
			acc, err := v.Validate(c.Request().Context(), raw)
			if err != nil {
				var se *service.Error
				if errors.As(err, &se) && se.Kind == service.KindAuthentication {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": se.Code, "message": se.Message})
				}
				log.WithError(err).WithField("path", c.Path()).Error("validate session")
				return c.JSON(http.StatusInternalServerError, echo.Map{
					"error": "internal", "message": "internal error",
				})
			}
			setAccount(c, acc)
			return next(c)
		}
	}
}

// OptionalAuth identifies the caller when a valid token is presented and
// otherwise lets the request through anonymously.
func OptionalAuth(v TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw := BearerToken(c); raw != "" {
				if acc, err := v.Validate(c.Request().Context(), raw); err == nil {
					setAccount(c, acc)
				}
			}
			return next(c)
		}
	}
}
