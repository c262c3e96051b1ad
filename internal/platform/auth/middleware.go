package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
)

// PrincipalLoader resolves the current role and profile of a user. It is
// consulted on every authenticated request so role or department changes
// take effect without re-issuing tokens.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, userID int64) (authz.Principal, error)
}

// PrincipalLoaderFunc adapts a function to PrincipalLoader.
type PrincipalLoaderFunc func(ctx context.Context, userID int64) (authz.Principal, error)

func (f PrincipalLoaderFunc) LoadPrincipal(ctx context.Context, userID int64) (authz.Principal, error) {
	return f(ctx, userID)
}

const (
	msgInvalidToken   = "Given token not valid for any token type"
	msgUserNotFound   = "User not found"
	msgNotProvided    = "Authentication credentials were not provided."
	wwwAuthenticate   = `Bearer realm="api"`
	authorizationType = "bearer"
)

// Authenticate resolves the request principal from a Bearer access token.
// Requests without an Authorization header continue as anonymous. A header
// that does not carry a valid access token is rejected with 401.
func Authenticate(tokens *TokenManager, loader PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], authorizationType) || strings.TrimSpace(parts[1]) == "" {
				return unauthorized(c, msgInvalidToken)
			}

			claims, err := tokens.Parse(strings.TrimSpace(parts[1]), AccessToken)
			if err != nil {
				return unauthorized(c, msgInvalidToken)
			}
			userID, _ := claims.UserID()

			ctx := c.Request().Context()
			p, err := loader.LoadPrincipal(ctx, userID)
			if errors.Is(err, db.ErrNotFound) {
				return unauthorized(c, msgUserNotFound)
			}
			if err != nil {
				return err
			}
			p.Authenticated = true

			c.SetRequest(c.Request().WithContext(authz.WithPrincipal(ctx, p)))
			c.Set("user_id", p.UserID)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, wwwAuthenticate)
	return echo.NewHTTPError(http.StatusUnauthorized, msg)
}

// Principal returns the principal resolved by Authenticate.
func Principal(c echo.Context) authz.Principal {
	return authz.PrincipalFromContext(c.Request().Context())
}
