// Package handler exposes the service layer over HTTP. Handlers bind and
// shape JSON; every rule lives in the services they call.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/crowdsource-ideas/internal/middleware"
	"github.com/iliyamo/crowdsource-ideas/internal/model"
	"github.com/iliyamo/crowdsource-ideas/internal/service"
)

// requestTimeout bounds the store work done for one request.
const requestTimeout = 5 * time.Second

// Base carries what every handler needs to answer errors. With Debug set,
// internal error causes are included in responses.
type Base struct {
	Log   logrus.FieldLogger
	Debug bool
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindValidation, service.KindConflict:
		return http.StatusBadRequest
	case service.KindAuthentication:
		return http.StatusUnauthorized
	case service.KindAuthorization:
		return http.StatusForbidden
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as the standard error body.
func (b Base) fail(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		se = service.Internal(c.Path(), err)
	}
	status := statusFor(se.Kind)
	body := echo.Map{"error": se.Code, "message": se.Message}
	if len(se.Details) > 0 {
		body["details"] = se.Details
	}
	if status == http.StatusInternalServerError {
		b.Log.WithError(err).WithField("path", c.Path()).Error("request failed")
		if b.Debug {
			body["cause"] = err.Error()
		}
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// caller returns the authenticated account. Routes behind Authenticate
// always have one.
func caller(c echo.Context) model.Account {
	acc, _ := middleware.CurrentAccount(c)
	return acc
}

// viewer returns the authenticated account, or nil for anonymous requests.
func viewer(c echo.Context) *model.Account {
	if acc, ok := middleware.CurrentAccount(c); ok {
		return &acc
	}
	return nil
}
