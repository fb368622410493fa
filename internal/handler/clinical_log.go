package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// ClinicalLogHandler covers the monthly activity tallies: one row per EYD
// per calendar month, editable at any time by the owner.
type ClinicalLogHandler struct {
	DB       *sql.DB
	Log      *zap.Logger
	Users    *repository.UserRepo
	Logs     *repository.ClinicalLogRepo
	EPAs     *repository.EPARepo
	Resolver *authz.Resolver
}

func NewClinicalLogHandler(db *sql.DB, log *zap.Logger, users *repository.UserRepo,
	logs *repository.ClinicalLogRepo, epas *repository.EPARepo, res *authz.Resolver) *ClinicalLogHandler {
	return &ClinicalLogHandler{DB: db, Log: log, Users: users, Logs: logs, EPAs: epas, Resolver: res}
}

type clinicalLogReq struct {
	Year           int      `json:"year" validate:"required,min=2000,max=2100"`
	Month          int      `json:"month" validate:"required,min=1,max=12"`
	PatientsSeen   int      `json:"patients_seen" validate:"min=0"`
	ProceduresDone int      `json:"procedures_done" validate:"min=0"`
	ReferralsMade  int      `json:"referrals_made" validate:"min=0"`
	Notes          string   `json:"notes"`
	EPAIDs         []uint64 `json:"epa_ids"`
}

// Create inserts one monthly log. A second row for the same month surfaces
// as a field error rather than a bare conflict.
func (h *ClinicalLogHandler) Create(c echo.Context) error {
	var req clinicalLogReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.Role != model.RoleEYD {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindClinicalLog}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	l := model.ClinicalLog{
		EYDUserID:      actor.ID,
		Year:           req.Year,
		Month:          req.Month,
		PatientsSeen:   req.PatientsSeen,
		ProceduresDone: req.ProceduresDone,
		ReferralsMade:  req.ReferralsMade,
		Notes:          req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Logs.CreateTx(ctx, tx, &l); err != nil {
		if errors.Is(err, model.ErrDuplicate) {
			return writeErr(c, h.Log, model.NewValidationError(err,
				model.FieldError{Field: "month", Error: "a log for this month already exists"}))
		}
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindClinicalLog, l.ID, actor.ID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *ClinicalLogHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	ownerID, err := ownerParamOrSelf(c, actor)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, ownerID); err != nil {
		return writeErr(c, h.Log, err)
	}
	out, err := h.Logs.ListByOwner(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Update rewrites the tallies of an existing month.
func (h *ClinicalLogHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req clinicalLogReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	l, err := h.Logs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, l.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindClinicalLog}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	// the (eyd, year, month) key stays fixed; only tallies and notes move
	l.PatientsSeen = req.PatientsSeen
	l.ProceduresDone = req.ProceduresDone
	l.ReferralsMade = req.ReferralsMade
	l.Notes = req.Notes
	l.UpdatedAt = time.Now().UTC()

	// tallies and mapping swap commit together, as on creation
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Logs.SaveTx(ctx, tx, &l); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindClinicalLog, l.ID, l.EYDUserID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}
