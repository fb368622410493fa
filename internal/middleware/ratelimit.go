package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window limiter over redis, keyed by client IP
// and route. It protects the anonymous endpoints (questionnaire submission,
// external assessment) where there is no account to throttle on. With no
// redis client, or on a redis error, requests pass through: losing the
// limiter must not take the portal down with it.
func RateLimit(rdb *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	if rdb == nil || limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := "ratelimit:" + ip + ":" + c.Request().Method + ":" + c.Path()

			ctx := c.Request().Context()
			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				rdb.Expire(ctx, key, window)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			remaining := int64(limit) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(limit) {
				ttl, _ := rdb.TTL(ctx, key).Result()
				secs := int(ttl / time.Second)
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many requests"})
			}
			return next(c)
		}
	}
}
