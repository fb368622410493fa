package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// checkSelection validates an EPA selection against the active catalog and
// the target's cardinality rules, surfacing failures as a field error on
// epa_ids.
func checkSelection(ctx context.Context, epas *repository.EPARepo, sel epa.Selection, ids []uint64) error {
	active, err := epas.ActiveIDSet(ctx)
	if err != nil {
		return err
	}
	if !epa.ValidateSelection(sel, ids, active) {
		return model.NewValidationError(errors.New("invalid EPA selection"),
			model.FieldError{Field: "epa_ids", Error: "selection breaks the cardinality rules for this activity"})
	}
	return nil
}

// EPAHandler serves the read-only competency catalog.
type EPAHandler struct {
	Log   *zap.Logger
	Users *repository.UserRepo
	EPAs  *repository.EPARepo
}

func NewEPAHandler(log *zap.Logger, users *repository.UserRepo, epas *repository.EPARepo) *EPAHandler {
	return &EPAHandler{Log: log, Users: users, EPAs: epas}
}

// ListCatalog returns the active EPA catalog, visible to any authenticated
// user.
func (h *EPAHandler) ListCatalog(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := loadActor(ctx, c, h.Users); err != nil {
		return writeErr(c, h.Log, err)
	}
	epas, err := h.EPAs.ListActive(ctx)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, epas)
}
