// Package apierror translates service errors into HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/internal/platform/db"
	"github.com/medapi/medapi/internal/platform/validation"
)

// From maps err onto an *echo.HTTPError:
//
//	db.ErrNotFound       -> 404, empty body
//	authz.ErrForbidden   -> 403 {"error": ...}
//	validation.Errors    -> 400 field map
//	*echo.HTTPError      -> unchanged
//	anything else        -> 500
func From(err error) error {
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	if errors.Is(err, db.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound).SetInternal(err)
	}
	if errors.Is(err, authz.ErrForbidden) {
		return echo.NewHTTPError(http.StatusForbidden, authz.ErrForbidden.Error()).SetInternal(err)
	}
	if ve, ok := validation.As(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, ve)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}

// BadRequest is a 400 with a plain {"error": msg} body.
func BadRequest(msg string) error {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// Handler renders errors returned from handlers and middleware. 404s have an
// empty body, string messages become {"error": msg} and field maps are
// written as-is. 5xx responses are logged.
func Handler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, _ := From(err).(*echo.HTTPError)
		if he.Code >= http.StatusInternalServerError {
			ev := logger.Error().Err(err).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path)
			if rid, ok := c.Get("request_id").(string); ok {
				ev = ev.Str("request_id", rid)
			}
			ev.Msg("request failed")
		}

		var werr error
		switch {
		case c.Request().Method == http.MethodHead, he.Code == http.StatusNotFound:
			werr = c.NoContent(he.Code)
		default:
			werr = c.JSON(he.Code, body(he))
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("failed to write error response")
		}
	}
}

func body(he *echo.HTTPError) interface{} {
	switch m := he.Message.(type) {
	case string:
		return map[string]string{"error": m}
	case validation.Errors:
		return m
	case error:
		return map[string]string{"error": m.Error()}
	case nil:
		return map[string]string{"error": http.StatusText(he.Code)}
	default:
		return m
	}
}
