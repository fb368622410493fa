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

// ReflectionHandler covers the EYD reflection journal: owner-edited drafts
// with EPA tags, finalized by a one-way lock.
type ReflectionHandler struct {
	DB          *sql.DB
	Log         *zap.Logger
	Users       *repository.UserRepo
	Reflections *repository.ReflectionRepo
	EPAs        *repository.EPARepo
	Resolver    *authz.Resolver
}

func NewReflectionHandler(db *sql.DB, log *zap.Logger, users *repository.UserRepo,
	reflections *repository.ReflectionRepo, epas *repository.EPARepo, res *authz.Resolver) *ReflectionHandler {
	return &ReflectionHandler{DB: db, Log: log, Users: users, Reflections: reflections, EPAs: epas, Resolver: res}
}

type reflectionReq struct {
	Title          string    `json:"title" validate:"required,max=200"`
	Content        string    `json:"content" validate:"required"`
	ReflectionDate time.Time `json:"reflection_date" validate:"required"`
	EPAIDs         []uint64  `json:"epa_ids"`
}

// Create inserts the reflection and its EPA mappings in one transaction, so
// a rejected selection leaves no orphan row behind.
func (h *ReflectionHandler) Create(c echo.Context) error {
	var req reflectionReq
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
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindReflection}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	r := model.Reflection{
		EYDUserID:      actor.ID,
		Title:          req.Title,
		Content:        req.Content,
		ReflectionDate: req.ReflectionDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Reflections.CreateTx(ctx, tx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindReflection, r.ID, actor.ID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// Get returns one reflection with its EPA tags, subject to view access.
func (h *ReflectionHandler) Get(c echo.Context) error {
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
	r, err := h.Reflections.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, r.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	tags, err := h.EPAs.MappingsFor(ctx, model.KindReflection, r.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"reflection": r, "epas": tags})
}

// List returns a trainee's reflections; EYDs list their own, other roles
// address the trainee by path.
func (h *ReflectionHandler) List(c echo.Context) error {
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
	out, err := h.Reflections.ListByOwner(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Update rewrites an unlocked draft and replaces its EPA tags.
func (h *ReflectionHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req reflectionReq
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
	r, err := h.Reflections.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, r.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindReflection}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := r.Update(req.Title, req.Content, req.ReflectionDate, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}

	// field edit and mapping swap commit together; if a concurrent lock won,
	// the guarded save fails and the tags are left untouched too
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Reflections.SaveDraftTx(ctx, tx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindReflection, r.ID, r.EYDUserID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Lock finalizes the reflection. The guarded update rejects a stale writer
// racing a concurrent lock.
func (h *ReflectionHandler) Lock(c echo.Context) error {
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
	r, err := h.Reflections.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, r.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := r.Lock(time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Reflections.Lock(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}
