package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/authz"
)

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if Principal(c).IsAnonymous() {
				return unauthorized(c, msgNotProvided)
			}
			return next(c)
		}
	}
}

// RequireRole returns middleware that checks the principal holds one of the
// given roles. Anonymous callers get 401, others 403.
func RequireRole(roles ...authz.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := Principal(c)
			if p.IsAnonymous() {
				return unauthorized(c, msgNotProvided)
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, authz.ErrForbidden.Error())
		}
	}
}
