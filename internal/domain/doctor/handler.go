package doctor

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/apierror"
	"github.com/medapi/medapi/internal/platform/auth"
	"github.com/medapi/medapi/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/doctors", auth.RequireAuthenticated())
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id", h.Patch)
	g.DELETE("/:id", h.Delete)
}

// pathID parses the :id parameter. Anything but a positive integer does not
// name a doctor, so it is reported as not found.
func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound)
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	doctors, total, err := h.svc.List(c.Request().Context(), auth.Principal(c), page)
	if err != nil {
		return apierror.From(err)
	}
	return pagination.Write(c, page, doctors, total)
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.svc.Create(c.Request().Context(), auth.Principal(c), &req)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), auth.Principal(c), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error {
	return h.update(c, false)
}

func (h *Handler) Patch(c echo.Context) error {
	return h.update(c, true)
}

func (h *Handler) update(c echo.Context, partial bool) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	resp, err := h.svc.Update(c.Request().Context(), auth.Principal(c), id, &req, partial)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), auth.Principal(c), id); err != nil {
		return apierror.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}
