// Package middleware holds the reusable echo middleware: bearer-token
// authentication, role gating, request logging and the anonymous-endpoint
// rate limiter. Authentication only establishes identity; every portfolio
// permission is re-derived by the authz resolver inside the handlers.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// JWTAuth validates a Bearer access token and stores the subject user id
// (uint64, key "user_id") and role claim (string, key "role") on the
// request context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			uid, ok := subjectID(claims["sub"])
			if !ok || uid == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid subject"})
			}
			role, _ := claims["role"].(string)

			c.Set("user_id", uid)
			c.Set("role", role)
			return next(c)
		}
	}
}

// subjectID normalizes the sub claim, which decodes as float64 from JSON but
// may be a numeric string from other issuers.
func subjectID(v any) (uint64, bool) {
	switch sub := v.(type) {
	case float64:
		return uint64(sub), true
	case string:
		n, err := strconv.ParseUint(sub, 10, 64)
		return n, err == nil
	}
	return 0, false
}
