package vaccination

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/simedi/gateway/internal/platform/auth"
	"github.com/simedi/gateway/internal/platform/gateway"
	"github.com/simedi/gateway/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/vaccinations")

	read := g.Group("", auth.RequireRole(auth.RolePhysician, auth.RoleNurse))
	read.GET("", h.ListVaccinations)
	read.GET("/search", h.SearchVaccinations)
	read.GET("/paged", h.PageVaccinations)
	read.GET("/:id", h.GetVaccination)
	read.POST("/batch", h.GetVaccinations)

	write := g.Group("", auth.RequireRole(auth.RoleNurse))
	write.POST("", h.CreateVaccination)
	write.DELETE("/:id", h.DeleteVaccination)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) CreateVaccination(c echo.Context) error {
	var v Entry
	if err := c.Bind(&v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.svc.CreateVaccination(c.Request().Context(), &v)
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}

func (h *Handler) GetVaccination(c echo.Context) error {
	v, err := h.svc.GetVaccination(c.Request().Context(), c.Param("id"))
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) GetVaccinations(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.GetVaccinations(c.Request().Context(), req.IDs)
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListVaccinations(c echo.Context) error {
	items, err := h.svc.ListVaccinations(c.Request().Context())
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SearchVaccinations(c echo.Context) error {
	items, err := h.svc.SearchVaccinations(c.Request().Context(), c.QueryParam("subject"), c.QueryParam("status"))
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) PageVaccinations(c echo.Context) error {
	pg, err := pagination.FromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	subject := c.QueryParam("subject")
	page, err := h.svc.PageVaccinations(c.Request().Context(), subject, pg.PageSize, pg.Bookmark)
	if err != nil {
		return gateway.HTTPError(err)
	}
	resp := pagination.NewResponse(page.Items, page.Bookmark, page.FetchedCount, pg).
		WithNext(c.Request().URL.Path, map[string][]string{"subject": {subject}})
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeleteVaccination(c echo.Context) error {
	if err := h.svc.DeleteVaccination(c.Request().Context(), c.Param("id")); err != nil {
		return gateway.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
