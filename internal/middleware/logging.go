package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequestLogger logs one structured line per request. Anonymous endpoints
// carry user_id 0; everything else logs the authenticated subject so access
// to trainee records is traceable.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			uid, _ := c.Get("user_id").(uint64)
			log.Info("request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", c.Response().Status),
				zap.Uint64("user_id", uid),
				zap.String("ip", c.RealIP()),
				zap.Duration("took", time.Since(start)),
			)
			return nil
		}
	}
}
