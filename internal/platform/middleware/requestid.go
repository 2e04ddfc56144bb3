package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const RequestIDHeader = echo.HeaderXRequestID

// maxRequestIDLen bounds client-supplied ids before they reach logs and the
// audit table.
const maxRequestIDLen = 64

type requestIDKey struct{}

// RequestID reuses the caller's X-Request-ID or assigns a new UUID, and
// makes it available to handlers and to everything below them through the
// request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(RequestIDHeader)
			if rid == "" || len(rid) > maxRequestIDLen {
				rid = uuid.NewString()
			}

			c.Set("request_id", rid)
			c.Response().Header().Set(RequestIDHeader, rid)
			c.SetRequest(req.WithContext(WithRequestID(req.Context(), rid)))
			return next(c)
		}
	}
}

func WithRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, rid)
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey{}).(string)
	return rid
}
