package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation-service/internal/model"
)

const callerKey = "caller"

// Authorize resolves the caller for every request it wraps.  Requests
// without a valid identity are rejected with 401 before any handler runs.
// On success the caller is stored in the context together with a string
// "user_id" used for rate-limit keys.
func Authorize(res Resolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			caller, err := res.Resolve(c.Request())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			c.Set(callerKey, caller)
			c.Set("user_id", strconv.FormatUint(caller.UserID, 10))
			return next(c)
		}
	}
}

// CallerFrom returns the identity stored by Authorize.
func CallerFrom(c echo.Context) (model.Caller, bool) {
	caller, ok := c.Get(callerKey).(model.Caller)
	return caller, ok
}
