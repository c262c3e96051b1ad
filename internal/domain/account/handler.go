package account

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/apierror"
	"github.com/medapi/medapi/internal/platform/auth"
)

const msgMissingRefresh = "Please provide a refresh token in the body."

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the account endpoints. credentials wraps the
// endpoints that accept a password or a refresh token.
func (h *Handler) RegisterRoutes(g *echo.Group, credentials ...echo.MiddlewareFunc) {
	g.POST("/register", h.Register, credentials...)
	g.POST("/login", h.Login, credentials...)
	g.POST("/token/refresh", h.Refresh, credentials...)
	g.POST("/logout", h.Logout, auth.RequireAuthenticated())
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := h.svc.Register(c.Request().Context(), &req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	pair, err := h.svc.Login(c.Request().Context(), &req)
	if errors.Is(err, ErrInvalidCredentials) {
		return echo.NewHTTPError(http.StatusUnauthorized, "No active account found with the given credentials")
	}
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *Handler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	access, err := h.svc.Refresh(c.Request().Context(), &req)
	if te, ok := auth.AsTokenError(err); ok {
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]string{
			"error": te.Message(),
			"code":  string(te.Kind),
		})
	}
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, RefreshResponse{Access: access})
}

func (h *Handler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.RefreshToken == "" {
		return apierror.BadRequest(msgMissingRefresh)
	}

	err := h.svc.Logout(c.Request().Context(), auth.Principal(c), req.RefreshToken)
	if te, ok := auth.AsTokenError(err); ok {
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"error": te.Message(),
			"code":  string(te.Kind),
		})
	}
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusResetContent, map[string]string{"message": "Logout successful."})
}
