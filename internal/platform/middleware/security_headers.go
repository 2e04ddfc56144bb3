package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders sets the response headers expected of a JSON API that
// returns patient data.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")
			// Prescriptions and vaccination records must not be cached.
			h.Set("Cache-Control", "no-store")
			return next(c)
		}
	}
}
