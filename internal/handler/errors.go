// Package handler implements the HTTP endpoints. Every handler follows the
// same shape: bind and validate the request, load the entity, consult the
// authz resolver, apply the state transition on the model, then persist
// through a guarded repository write. Errors from any of those steps funnel
// through writeErr so the status mapping is identical everywhere.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/model"
)

// writeErr maps the domain error taxonomy onto HTTP. Not-found and forbidden
// stay distinct: an entity the actor may not see still reports 403, never a
// masking 404.
func writeErr(c echo.Context, log *zap.Logger, err error) error {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, model.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, model.ErrStateConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "state conflict"})
	case errors.Is(err, model.ErrDuplicate):
		return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate"})
	}
	log.Error("internal error", zap.Error(err), zap.String("path", c.Path()))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
