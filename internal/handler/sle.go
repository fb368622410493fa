package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
	"github.com/dentraining/portfolio-api/internal/utils"
)

// SLEHandler covers supervised learning events: creation with an internal
// or external assessor, the assessment by the internal assessor, and the
// owner's closing reflection. The external-assessor leg lives in
// ExternalAssessmentHandler.
type SLEHandler struct {
	DB       *sql.DB
	Cfg      config.Config
	Log      *zap.Logger
	Users    *repository.UserRepo
	SLEs     *repository.SLERepo
	EPAs     *repository.EPARepo
	Resolver *authz.Resolver
	Notifier *queue.Publisher
}

func NewSLEHandler(db *sql.DB, cfg config.Config, log *zap.Logger, users *repository.UserRepo,
	sles *repository.SLERepo, epas *repository.EPARepo, res *authz.Resolver, notifier *queue.Publisher) *SLEHandler {
	return &SLEHandler{DB: db, Cfg: cfg, Log: log, Users: users, SLEs: sles, EPAs: epas, Resolver: res, Notifier: notifier}
}

type sleCreateReq struct {
	Type                  string    `json:"type" validate:"required"`
	Title                 string    `json:"title" validate:"required,max=200"`
	ScheduledDate         time.Time `json:"scheduled_date" validate:"required"`
	AssessorUserID        *uint64   `json:"assessor_user_id"`
	ExternalAssessorName  string    `json:"external_assessor_name"`
	ExternalAssessorEmail string    `json:"external_assessor_email" validate:"omitempty,email"`
	EPAIDs                []uint64  `json:"epa_ids"`
}

// Create inserts the event and its EPA tags atomically. Exactly one of an
// internal assessor id or an external name+email pair must be given; the
// external route mints the bearer token that the emailed link carries.
func (h *SLEHandler) Create(c echo.Context) error {
	var req sleCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}
	sleType := model.SLEType(req.Type)
	if !sleType.Valid() {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "type", Error: "unknown SLE type"}))
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
	if err := checkSelection(ctx, h.EPAs, epa.Selection{Kind: model.KindSLE, SLEType: sleType}, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}

	external := req.AssessorUserID == nil
	if external {
		if req.ExternalAssessorName == "" || req.ExternalAssessorEmail == "" {
			return writeErr(c, h.Log, model.NewValidationError(nil,
				model.FieldError{Field: "assessor_user_id", Error: "an internal assessor or an external name and email is required"}))
		}
	} else {
		assessor, err := h.Users.GetByID(ctx, *req.AssessorUserID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		if !assessor.IsActive || assessor.Role == model.RoleEYD {
			return writeErr(c, h.Log, model.NewValidationError(nil,
				model.FieldError{Field: "assessor_user_id", Error: "assessor must be an active non-trainee user"}))
		}
	}

	now := time.Now().UTC()
	s := model.SLE{
		EYDUserID:      actor.ID,
		Type:           sleType,
		Title:          req.Title,
		ScheduledDate:  req.ScheduledDate,
		AssessorUserID: req.AssessorUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if external {
		s.ExternalAssessorName = req.ExternalAssessorName
		s.ExternalAssessorEmail = req.ExternalAssessorEmail
		s.ExternalAccessToken = utils.NewExternalToken()
	}

	tx, err := h.DB.BeginTx(ctx, nil)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer tx.Rollback()

	if err := h.SLEs.CreateTx(ctx, tx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.EPAs.ReplaceMappingsTx(ctx, tx, model.KindSLE, s.ID, actor.ID, req.EPAIDs); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := tx.Commit(); err != nil {
		return writeErr(c, h.Log, err)
	}

	ev := queue.NotificationEvent{
		Kind:       queue.EventSLEInvited,
		Subject:    "Assessment invitation",
		Body:       actor.DisplayName + " has invited you to assess \"" + s.Title + "\".",
		OccurredAt: now.Format(time.RFC3339),
	}
	if external {
		ev.Email = s.ExternalAssessorEmail
		ev.Link = h.Cfg.PublicBaseURL + "/v1/external-assessment/" + s.ExternalAccessToken
	} else {
		ev.UserID = *s.AssessorUserID
	}
	h.Notifier.Publish(ev)

	return c.JSON(http.StatusCreated, s)
}

func (h *SLEHandler) Get(c echo.Context) error {
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
	s, err := h.SLEs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	// the internal assessor may see the event they were invited to without
	// broader access to the trainee's portfolio
	if s.AssessorUserID == nil || *s.AssessorUserID != actor.ID {
		if _, err := h.Resolver.RequireView(ctx, actor, s.EYDUserID); err != nil {
			return writeErr(c, h.Log, err)
		}
	}
	tags, err := h.EPAs.MappingsFor(ctx, model.KindSLE, s.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"sle": s, "epas": tags})
}

func (h *SLEHandler) List(c echo.Context) error {
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
	out, err := h.SLEs.ListByOwner(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AssessorQueue lists events awaiting the acting internal assessor.
func (h *SLEHandler) AssessorQueue(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	out, err := h.SLEs.ListByAssessor(ctx, actor.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type sleUpdateReq struct {
	Title         string    `json:"title" validate:"required,max=200"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
}

// Update edits the invitation while no assessment has been recorded.
func (h *SLEHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req sleUpdateReq
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
	s, err := h.SLEs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, s.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := s.Update(req.Title, req.ScheduledDate, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.SLEs.SaveInvite(ctx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}

type assessmentReq struct {
	BehaviourFeedback string `json:"behaviour_feedback" validate:"required"`
	AgreedAction      string `json:"agreed_action" validate:"required"`
	AssessorPosition  string `json:"assessor_position" validate:"required,max=120"`
}

// Assess records the internal assessor's feedback. Only the designated
// assessor may submit, and only once.
func (h *SLEHandler) Assess(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req assessmentReq
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
	s, err := h.SLEs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if s.AssessorUserID == nil || *s.AssessorUserID != actor.ID {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	now := time.Now().UTC()
	if err := s.CompleteAssessment(req.BehaviourFeedback, req.AgreedAction, req.AssessorPosition, now); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.SLEs.SaveAssessment(ctx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventSLEAssessed,
		UserID:     s.EYDUserID,
		Subject:    "Assessment completed",
		Body:       "The assessment for \"" + s.Title + "\" has been completed. You can now add your reflection.",
		OccurredAt: now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, s)
}

type sleReflectionReq struct {
	ReflectionNotes string `json:"reflection_notes" validate:"required"`
}

// Reflect records the owner's closing reflection, allowed once and only
// after the assessment.
func (h *SLEHandler) Reflect(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req sleReflectionReq
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
	s, err := h.SLEs.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, s.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := s.CompleteReflection(req.ReflectionNotes, time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.SLEs.SaveReflection(ctx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, s)
}
