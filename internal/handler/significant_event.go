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
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// SignificantEventHandler covers the two-stage sign-off workflow: the owner
// drafts, the ES signs first, the TPD counter-signs and the row locks. The
// ordering is enforced both by the model transition and by the guarded
// repository write.
type SignificantEventHandler struct {
	DB       *sql.DB
	Log      *zap.Logger
	Users    *repository.UserRepo
	Events   *repository.SignificantEventRepo
	EPAs     *repository.EPARepo
	Resolver *authz.Resolver
	Notifier *queue.Publisher
}

func NewSignificantEventHandler(db *sql.DB, log *zap.Logger, users *repository.UserRepo,
	events *repository.SignificantEventRepo, epas *repository.EPARepo,
	res *authz.Resolver, notifier *queue.Publisher) *SignificantEventHandler {
	return &SignificantEventHandler{DB: db, Log: log, Users: users, Events: events, EPAs: epas, Resolver: res, Notifier: notifier}
}

type sigEventReq struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"required"`
	EventDate   time.Time `json:"event_date" validate:"required"`
	EPAIDs      []uint64  `json:"epa_ids"`
}

func (h *SignificantEventHandler) Create(c echo.Context) error {
	var req sigEventReq
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
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindSignificantEvent}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	s := model.SignificantEvent{
		EYDUserID:   actor.ID,
		Title:       req.Title,
		Description: req.Description,
		EventDate:   req.EventDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Events.CreateTx(ctx, tx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindSignificantEvent, s.ID, actor.ID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *SignificantEventHandler) Get(c echo.Context) error {
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
	s, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, s.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	tags, err := h.EPAs.MappingsFor(ctx, model.KindSignificantEvent, s.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event": s, "epas": tags})
}

func (h *SignificantEventHandler) List(c echo.Context) error {
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
	out, err := h.Events.ListByOwner(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Update rewrites the draft; rejected once the ES has signed.
func (h *SignificantEventHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req sigEventReq
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
	s, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, s.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindSignificantEvent}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := s.Update(req.Title, req.Description, req.EventDate, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}

	// field edit and mapping swap commit together, as on creation
	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.Events.SaveDraftTx(ctx, tx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindSignificantEvent, s.ID, s.EYDUserID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// SignOffES records the supervisor sign-off through the active assignment.
func (h *SignificantEventHandler) SignOffES(c echo.Context) error {
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
	s, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	snap, err := h.Resolver.Load(ctx, actor, s.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanSignOffES(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	now := time.Now().UTC()
	if err := s.SignOffES(actor.ID, now); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Events.SaveESSignOff(ctx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventSignOffRecorded,
		UserID:     s.EYDUserID,
		Subject:    "Significant event signed off",
		Body:       "Your significant event \"" + s.Title + "\" was signed off by your educational supervisor.",
		OccurredAt: now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, s)
}

// SignOffTPD records the programme-director sign-off, which locks the
// event. Rejected while the ES sign-off is missing.
func (h *SignificantEventHandler) SignOffTPD(c echo.Context) error {
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
	s, err := h.Events.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	snap, err := h.Resolver.Load(ctx, actor, s.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanSignOffTPD(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	now := time.Now().UTC()
	if err := s.SignOffTPD(actor.ID, now); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Events.SaveTPDSignOff(ctx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventSignOffRecorded,
		UserID:     s.EYDUserID,
		Subject:    "Significant event fully signed off",
		Body:       "Your significant event \"" + s.Title + "\" is now signed off by the programme director and locked.",
		OccurredAt: now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, s)
}
