package httpapi

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

const cronSecretHeader = "x-cron-secret"

// CronSecret rejects requests whose x-cron-secret header does not match. An
// empty secret disables the check.
func CronSecret(secret string) echo.MiddlewareFunc {
	expected := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(expected) == 0 {
				return next(c)
			}
			provided := []byte(c.Request().Header.Get(cronSecretHeader))
			if subtle.ConstantTimeCompare(provided, expected) != 1 {
				return c.JSON(http.StatusUnauthorized, errorResponse{OK: false, Error: "Unauthorized"})
			}
			return next(c)
		}
	}
}
