package prescription

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
	g := api.Group("/prescriptions")

	// Read endpoints – admin, physician, pharmacist
	read := g.Group("", auth.RequireRole(auth.RolePhysician, auth.RolePharmacist))
	read.GET("", h.ListPrescriptions)
	read.GET("/search", h.SearchPrescriptions)
	read.GET("/paged", h.PagePrescriptions)
	read.GET("/:id", h.GetPrescription)
	read.POST("/batch", h.GetPrescriptions)

	// Prescribing – admin, physician
	write := g.Group("", auth.RequireRole(auth.RolePhysician))
	write.POST("", h.CreatePrescription)
	write.PUT("/:id/sign", h.SignPrescription)
	write.PUT("/:id/owner", h.TransferPrescription)
	write.DELETE("/:id", h.DeletePrescription)

	// Dispensing – admin, pharmacist
	dispense := g.Group("", auth.RequireRole(auth.RolePharmacist))
	dispense.PUT("/:id/deliver", h.DeliverPrescription)
}

type batchRequest struct {
	IDs []string `json:"ids"`
}

type signRequest struct {
	Signature string `json:"signature"`
}

type transferRequest struct {
	Owner string `json:"owner"`
}

type transferResponse struct {
	ID            string `json:"id"`
	PreviousOwner string `json:"previousOwner"`
	Owner         string `json:"owner"`
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	receipt, err := h.svc.CreatePrescription(c.Request().Context(), &p)
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, receipt)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	p, err := h.svc.GetPrescription(c.Request().Context(), c.Param("id"))
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) GetPrescriptions(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	items, err := h.svc.GetPrescriptions(c.Request().Context(), req.IDs)
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListPrescriptions(c echo.Context) error {
	items, err := h.svc.ListPrescriptions(c.Request().Context())
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) SearchPrescriptions(c echo.Context) error {
	items, err := h.svc.SearchPrescriptions(c.Request().Context(), c.QueryParam("subject"), c.QueryParam("status"))
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) PagePrescriptions(c echo.Context) error {
	pg, err := pagination.FromContext(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	subject, status := c.QueryParam("subject"), c.QueryParam("status")
	page, err := h.svc.PagePrescriptions(c.Request().Context(), subject, status, pg.PageSize, pg.Bookmark)
	if err != nil {
		return gateway.HTTPError(err)
	}
	filters := map[string][]string{"subject": {subject}}
	if status != "" {
		filters["status"] = []string{status}
	}
	resp := pagination.NewResponse(page.Items, page.Bookmark, page.FetchedCount, pg).
		WithNext(c.Request().URL.Path, filters)
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) DeliverPrescription(c echo.Context) error {
	if err := h.svc.DeliverPrescription(c.Request().Context(), c.Param("id")); err != nil {
		return gateway.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SignPrescription(c echo.Context) error {
	var req signRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SignPrescription(c.Request().Context(), c.Param("id"), req.Signature); err != nil {
		return gateway.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) TransferPrescription(c echo.Context) error {
	var req transferRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id := c.Param("id")
	prev, err := h.svc.TransferPrescription(c.Request().Context(), id, req.Owner)
	if err != nil {
		return gateway.HTTPError(err)
	}
	return c.JSON(http.StatusOK, transferResponse{ID: id, PreviousOwner: prev, Owner: req.Owner})
}

func (h *Handler) DeletePrescription(c echo.Context) error {
	if err := h.svc.DeletePrescription(c.Request().Context(), c.Param("id")); err != nil {
		return gateway.HTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
