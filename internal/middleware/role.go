package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dentraining/portfolio-api/internal/model"
)

// RequireRole rejects requests whose token role is not in the allowed set.
// This is a coarse gate on route groups; fine-grained decisions (ownership,
// assignments, area matching) happen in the handlers via the resolver.
// Missing or unknown roles are always rejected.
func RequireRole(allowed ...model.Role) echo.MiddlewareFunc {
	set := make(map[model.Role]bool, len(allowed))
	for _, r := range allowed {
		set[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			r := model.Role(role)
			if !r.Valid() || !set[r] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
