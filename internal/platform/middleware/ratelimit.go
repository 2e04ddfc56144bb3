package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/simedi/gateway/internal/platform/auth"
)

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
	}
}

// limiterStore holds one token bucket per caller.
type limiterStore struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
}

func newLimiterStore(cfg RateLimitConfig) *limiterStore {
	return &limiterStore{
		limiters: make(map[string]*rate.Limiter),
		config:   cfg,
	}
}

func (s *limiterStore) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	lim, ok := s.limiters[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(s.config.RequestsPerSecond), s.config.BurstSize)
		s.limiters[key] = lim
	}
	return lim
}

// retryAfter is the whole number of seconds until one token is available.
func (s *limiterStore) retryAfter() int {
	if s.config.RequestsPerSecond <= 0 {
		return 1
	}
	return int(math.Ceil(1 / s.config.RequestsPerSecond))
}

// RateLimit throttles each authenticated user, or each client IP before
// authentication, to the configured rate.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := newLimiterStore(cfg)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP()
			if uid := auth.UserIDFromContext(c.Request().Context()); uid != "" {
				key = "user:" + uid
			}

			if !store.get(key).Allow() {
				c.Response().Header().Set("Retry-After", strconv.Itoa(store.retryAfter()))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
