package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// LearningNeedHandler covers the draft/submitted/completed workflow. The
// owner may bounce a need between draft and submitted any number of times;
// completion comes from a supervisor or programme director, never the owner.
type LearningNeedHandler struct {
	DB       *sql.DB
	Log      *zap.Logger
	Users    *repository.UserRepo
	Needs    *repository.LearningNeedRepo
	EPAs     *repository.EPARepo
	Resolver *authz.Resolver
	Notifier *queue.Publisher
}

func NewLearningNeedHandler(db *sql.DB, log *zap.Logger, users *repository.UserRepo,
	needs *repository.LearningNeedRepo, epas *repository.EPARepo, res *authz.Resolver,
	notifier *queue.Publisher) *LearningNeedHandler {
	return &LearningNeedHandler{DB: db, Log: log, Users: users, Needs: needs, EPAs: epas, Resolver: res, Notifier: notifier}
}

type learningNeedReq struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Description    string    `json:"description" validate:"required"`
	DateIdentified time.Time `json:"date_identified" validate:"required"`
	EPAIDs         []uint64  `json:"epa_ids"`
}

func (h *LearningNeedHandler) Create(c echo.Context) error {
	var req learningNeedReq
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
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindLearningNeed}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	l := model.LearningNeed{
		EYDUserID:      actor.ID,
		Title:          req.Title,
		Description:    req.Description,
		DateIdentified: req.DateIdentified,
		Status:         model.LearningNeedDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Needs.CreateTx(ctx, tx, &l); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindLearningNeed, l.ID, actor.ID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *LearningNeedHandler) Get(c echo.Context) error {
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
	l, err := h.Needs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, l.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	tags, err := h.EPAs.MappingsFor(ctx, model.KindLearningNeed, l.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"learning_need": l, "epas": tags})
}

func (h *LearningNeedHandler) List(c echo.Context) error {
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
	out, err := h.Needs.ListByOwner(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Update rewrites the need while it is a draft.
func (h *LearningNeedHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req learningNeedReq
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
	l, err := h.Needs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, l.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindLearningNeed}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := l.Update(req.Title, req.Description, req.DateIdentified, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}

	// field edit and mapping swap commit together, as on creation
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Needs.SaveDraftTx(ctx, tx, &l); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindLearningNeed, l.ID, l.EYDUserID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// transition runs one owner-driven status change end to end.
func (h *LearningNeedHandler) transition(c echo.Context,
	apply func(*model.LearningNeed, time.Time) error,
	save func(context.Context, *model.LearningNeed) error) error {
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
	l, err := h.Needs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, l.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := apply(&l, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := save(ctx, &l); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, l)
}

// Submit moves a draft to submitted.
func (h *LearningNeedHandler) Submit(c echo.Context) error {
	return h.transition(c, (*model.LearningNeed).Submit, h.Needs.SaveSubmit)
}

// Revert returns a submitted need to draft.
func (h *LearningNeedHandler) Revert(c echo.Context) error {
	return h.transition(c, (*model.LearningNeed).Revert, h.Needs.SaveRevert)
}

// Complete finalizes a submitted need. Owners are refused here: completion
// must come from an assigned ES, an area TPD or a superuser.
func (h *LearningNeedHandler) Complete(c echo.Context) error {
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
	l, err := h.Needs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	snap, err := h.Resolver.Load(ctx, actor, l.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanCompleteLearningNeed(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	now := time.Now().UTC()
	if err := l.Complete(actor.ID, now); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Needs.SaveComplete(ctx, &l); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventLearningNeedDone,
		UserID:     l.EYDUserID,
		Subject:    "Learning need completed",
		Body:       "Your learning need \"" + l.Title + "\" was marked completed.",
		OccurredAt: now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, l)
}
