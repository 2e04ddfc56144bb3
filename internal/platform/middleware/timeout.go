package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// RequestTimeout puts a deadline on the request context. Ledger calls made
// by the handler inherit it, so a slow peer cannot hold a request longer
// than timeout. The handler always runs to completion before the middleware
// returns; if the deadline passed and the handler wrote nothing, a 504 is
// sent. A non-positive timeout disables the middleware.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if timeout <= 0 {
			return next
		}
		return func(c echo.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()

			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) || c.Response().Committed {
				return err
			}
			return c.JSON(http.StatusGatewayTimeout, map[string]string{
				"message": "request exceeded the allowed time limit",
			})
		}
	}
}
