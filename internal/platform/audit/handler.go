package audit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/simedi/gateway/internal/platform/auth"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// Handler exposes the audit trail to administrators.
type Handler struct {
	reader Reader
}

func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/audit", auth.RequireRole(auth.RoleAdmin))
	g.GET("/ledger", h.Recent)
}

func (h *Handler) Recent(c echo.Context) error {
	limit := defaultRecentLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxRecentLimit)
	}

	entries, err := h.reader.Recent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read audit trail")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return c.JSON(http.StatusOK, entries)
}
