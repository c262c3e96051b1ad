package department

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medapi/medapi/internal/platform/apierror"
	"github.com/medapi/medapi/internal/platform/auth"
	"github.com/medapi/medapi/internal/platform/authz"
	"github.com/medapi/medapi/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the department directory. Reads are public; item
// writes authenticate first so a missing department is still reported as 404.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	authenticated := auth.RequireAuthenticated()

	g := api.Group("/departments")
	g.GET("", h.List)
	g.POST("", h.Create, auth.RequireRole(authz.RoleSuperuser))
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update, authenticated)
	g.PATCH("/:id", h.Patch, authenticated)
	g.DELETE("/:id", h.Delete, authenticated)

	g.GET("/:id/doctors", h.ListDoctors, authenticated)
	g.PUT("/:id/doctors", h.TransferDoctors, authenticated)
	g.GET("/:id/patients", h.ListPatients, authenticated)
	g.PUT("/:id/patients", h.TransferPatients, authenticated)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound)
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)
	departments, total, err := h.svc.List(c.Request().Context(), auth.Principal(c), page)
	if err != nil {
		return apierror.From(err)
	}
	return pagination.Write(c, page, departments, total)
}

func (h *Handler) Create(c echo.Context) error {
	var req Request
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
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Update(c echo.Context) error { return h.update(c, false) }
func (h *Handler) Patch(c echo.Context) error  { return h.update(c, true) }

func (h *Handler) update(c echo.Context, partial bool) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req Request
	if err := c.Bind(&req); err != nil {
		return err
	}
	d, err := h.svc.Update(c.Request().Context(), auth.Principal(c), id, &req, partial)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, d)
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

func (h *Handler) ListDoctors(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	doctors, err := h.svc.ListDoctors(c.Request().Context(), auth.Principal(c), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) TransferDoctors(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req TransferDoctorsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	doctors, err := h.svc.TransferDoctors(c.Request().Context(), auth.Principal(c), id, req.Doctors)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) ListPatients(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	patients, err := h.svc.ListPatients(c.Request().Context(), auth.Principal(c), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) TransferPatients(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req TransferPatientsRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	patients, err := h.svc.TransferPatients(c.Request().Context(), auth.Principal(c), id, req.Patients)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, patients)
}
