package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// InductionHandler covers the ES induction record: authored by the assigned
// supervisor, one per trainee, with a reversible completion flag.
type InductionHandler struct {
	Log        *zap.Logger
	Users      *repository.UserRepo
	Inductions *repository.InductionRepo
	Resolver   *authz.Resolver
}

func NewInductionHandler(log *zap.Logger, users *repository.UserRepo,
	inductions *repository.InductionRepo, res *authz.Resolver) *InductionHandler {
	return &InductionHandler{Log: log, Users: users, Inductions: inductions, Resolver: res}
}

// requireESAuthor loads the snapshot and checks that the actor may author
// induction content for the trainee: the assigned ES or a superuser.
func (h *InductionHandler) requireESAuthor(c echo.Context, eydUserID uint64) (model.User, error) {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return actor, err
	}
	snap, err := h.Resolver.Load(ctx, actor, eydUserID)
	if err != nil {
		return actor, err
	}
	if !authz.CanSignOffES(snap) {
		return actor, model.ErrForbidden
	}
	return actor, nil
}

// inductionEditableBy restricts mutations of an existing record to its
// authoring ES. A co-assigned supervisor can read it but never rewrite a
// colleague's record; only a superuser overrides.
func inductionEditableBy(actor model.User, i model.ESInduction) bool {
	return actor.Role == model.RoleSuperuser || actor.ID == i.ESUserID
}

type inductionReq struct {
	EYDUserID   uint64    `json:"eyd_user_id" validate:"required"`
	MeetingDate time.Time `json:"meeting_date" validate:"required"`
	Notes       string    `json:"notes"`
}

// Create starts the induction record. The unique index on the trainee
// rejects a second record as a duplicate.
func (h *InductionHandler) Create(c echo.Context) error {
	var req inductionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	actor, err := h.requireESAuthor(c, req.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	now := time.Now().UTC()
	i := model.ESInduction{
		EYDUserID:   req.EYDUserID,
		ESUserID:    actor.ID,
		MeetingDate: req.MeetingDate,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Inductions.Create(ctx, &i); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, i)
}

// GetForEYD returns the trainee's induction record, subject to view access.
func (h *InductionHandler) GetForEYD(c echo.Context) error {
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
	i, err := h.Inductions.GetByEYD(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, i)
}

type inductionUpdateReq struct {
	MeetingDate time.Time `json:"meeting_date" validate:"required"`
	Notes       string    `json:"notes"`
}

// Update edits the record while it is not completed.
func (h *InductionHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req inductionUpdateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	i, err := h.Inductions.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	actor, err := h.requireESAuthor(c, i.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !inductionEditableBy(actor, i) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	if err := i.Update(req.MeetingDate, req.Notes, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Inductions.SaveDraft(ctx, &i); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, i)
}

// Complete marks the induction done; Reopen reverses it. Both transitions
// go through guarded updates so the toggle cannot double-apply.
func (h *InductionHandler) Complete(c echo.Context) error {
	return h.toggle(c, (*model.ESInduction).Complete, h.Inductions.SaveComplete)
}

func (h *InductionHandler) Reopen(c echo.Context) error {
	return h.toggle(c, (*model.ESInduction).Reopen, h.Inductions.SaveReopen)
}

func (h *InductionHandler) toggle(c echo.Context,
	apply func(*model.ESInduction, time.Time) error,
	save func(context.Context, *model.ESInduction) error) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	i, err := h.Inductions.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	actor, err := h.requireESAuthor(c, i.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !inductionEditableBy(actor, i) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	if err := apply(&i, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := save(ctx, &i); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, i)
}
