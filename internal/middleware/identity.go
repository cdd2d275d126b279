package middleware

// identity.go holds the context accessors for the authenticated account
// placed there by Authenticate and OptionalAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/crowdsource-ideas/internal/model"
)

const accountKey = "account"

func setAccount(c echo.Context, acc model.Account) { c.Set(accountKey, acc) }

// CurrentAccount returns the authenticated account, if any.
func CurrentAccount(c echo.Context) (model.Account, bool) {
	acc, ok := c.Get(accountKey).(model.Account)
	return acc, ok
}

// accountID identifies the caller for logs. It returns "guest" when no
// account is authenticated.
func accountID(c echo.Context) string {
	if acc, ok := CurrentAccount(c); ok {
		return strconv.FormatUint(acc.ID, 10)
	}
	return "guest"
}
