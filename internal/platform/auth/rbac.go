package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin      = "admin"
	RolePhysician  = "physician"
	RolePharmacist = "pharmacist"
	RoleNurse      = "nurse"
)

// RequireRole lets the request through when the caller holds one of roles.
// Admin satisfies every role.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, has := range RolesFromContext(c.Request().Context()) {
				if has == RoleAdmin {
					return next(c)
				}
				for _, required := range roles {
					if has == required {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
