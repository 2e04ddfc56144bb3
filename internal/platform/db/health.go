package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the audit database pool as reported by the health endpoint.
type PoolStats struct {
	TotalConns      int32  `json:"totalConns"`
	IdleConns       int32  `json:"idleConns"`
	AcquiredConns   int32  `json:"acquiredConns"`
	MaxConns        int32  `json:"maxConns"`
	AcquireCount    int64  `json:"acquireCount"`
	AcquireDuration string `json:"acquireDuration"`
	Healthy         bool   `json:"healthy"`
}

func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

// Pinger is the part of a pool the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the audit database answers. A nil pool
// means auditing goes to the log only, which is reported as healthy.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	if pool == nil {
		return healthHandler(nil, nil)
	}
	return healthHandler(pool, func() *PoolStats { return GetPoolStats(pool) })
}

func healthHandler(p Pinger, stats func() *PoolStats) echo.HandlerFunc {
	return func(c echo.Context) error {
		if p == nil {
			return c.JSON(http.StatusOK, map[string]interface{}{
				"status":   "healthy",
				"database": "disabled",
			})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := p.Ping(ctx)
		s := stats()
		if err != nil {
			s.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   s,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   s,
		})
	}
}
