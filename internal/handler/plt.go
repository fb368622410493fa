package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// PLTHandler covers protected learning time entries. A PLT must carry at
// least two EPA tags; the entry and its mappings are created atomically.
type PLTHandler struct {
	DB       *sql.DB
	Log      *zap.Logger
	Users    *repository.UserRepo
	PLTs     *repository.PLTRepo
	EPAs     *repository.EPARepo
	Resolver *authz.Resolver
}

func NewPLTHandler(db *sql.DB, log *zap.Logger, users *repository.UserRepo,
	plts *repository.PLTRepo, epas *repository.EPARepo, res *authz.Resolver) *PLTHandler {
	return &PLTHandler{DB: db, Log: log, Users: users, PLTs: plts, EPAs: epas, Resolver: res}
}

type pltReq struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description"`
	ActivityDate  time.Time `json:"activity_date" validate:"required"`
	DurationHours float64   `json:"duration_hours" validate:"required,gt=0,lte=24"`
	EPAIDs        []uint64  `json:"epa_ids"`
}

func (h *PLTHandler) Create(c echo.Context) error {
	var req pltReq
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
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindPLT}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	p := model.ProtectedLearningTime{
		EYDUserID:     actor.ID,
		Title:         req.Title,
		Description:   req.Description,
		ActivityDate:  req.ActivityDate,
		DurationHours: req.DurationHours,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.PLTs.CreateTx(ctx, tx, &p); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindPLT, p.ID, actor.ID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PLTHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	p, err := h.PLTs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, p.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	tags, err := h.EPAs.MappingsFor(ctx, model.KindPLT, p.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"plt": p, "epas": tags})
}

func (h *PLTHandler) List(c echo.Context) error {
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
	out, err := h.PLTs.ListByOwner(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PLTHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req pltReq
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
	p, err := h.PLTs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, p.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindPLT}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := p.Update(req.Title, req.Description, req.ActivityDate, req.DurationHours, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}

	// field edit and mapping swap commit together, as on creation
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.PLTs.SaveDraftTx(ctx, tx, &p); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindPLT, p.ID, p.EYDUserID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PLTHandler) Lock(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	p, err := h.PLTs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, p.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := p.Lock(time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.PLTs.Lock(ctx, &p); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}
