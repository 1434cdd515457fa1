package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-lot-reservation/internal/config"
)

// RateLimit returns a fixed-window rate limiter backed by Redis. Each
// client gets cfg.Limit requests per cfg.Window, keyed by the
// authenticated user when present and the remote address otherwise.
// With no Redis client or when disabled, the middleware is a
// pass-through. Counting uses INCR with an expiry set on the first hit
// of the window, so concurrent instances share one budget per client.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := "ratelimit:" + clientKey(c)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				// Redis down: let the request through rather than 500ing.
				return next(c)
			}
			if n == 1 {
				rdb.Expire(ctx, key, cfg.Window)
			}
			if n > int64(cfg.Limit) {
				ttl, _ := rdb.TTL(ctx, key).Result()
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

// clientKey prefers the authenticated user id over the remote address
// so NAT'ed users are not throttled together once logged in.
func clientKey(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		return fmt.Sprintf("user:%v", v)
	}
	return "ip:" + c.RealIP()
}
