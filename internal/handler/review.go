package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// ReviewHandler covers the three multi-party review workflows (ad-hoc ES
// report, IRCP, FRCP). The sections complete strictly in order — ES, then
// trainee, then panel — and each section write is guarded on that order.
type ReviewHandler struct {
	Log      *zap.Logger
	Users    *repository.UserRepo
	Reviews  *repository.ReviewRepo
	EPAs     *repository.EPARepo
	Resolver *authz.Resolver
	Notifier *queue.Publisher
}

func NewReviewHandler(log *zap.Logger, users *repository.UserRepo, reviews *repository.ReviewRepo,
	epas *repository.EPARepo, res *authz.Resolver, notifier *queue.Publisher) *ReviewHandler {
	return &ReviewHandler{Log: log, Users: users, Reviews: reviews, EPAs: epas, Resolver: res, Notifier: notifier}
}

type createReviewReq struct {
	Kind        string `json:"kind" validate:"required"`
	EYDUserID   uint64 `json:"eyd_user_id" validate:"required"`
	PeriodLabel string `json:"period_label" validate:"required,max=60"`
}

// Create opens a review. Only the assigned ES (or a superuser) starts one.
func (h *ReviewHandler) Create(c echo.Context) error {
	var req createReviewReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}
	kind := model.ReviewKind(req.Kind)
	if !kind.Valid() {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "kind", Error: "unknown review kind"}))
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	snap, err := h.Resolver.Load(ctx, actor, req.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanSignOffES(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	r := model.Review{
		Kind:        kind,
		EYDUserID:   req.EYDUserID,
		ESUserID:    actor.ID,
		PeriodLabel: req.PeriodLabel,
	}
	if err := h.Reviews.Create(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReviewHandler) Get(c echo.Context) error {
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
	r, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, r.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	assessments, err := h.Reviews.ListAssessments(ctx, r.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"review": r, "epa_assessments": assessments})
}

func (h *ReviewHandler) List(c echo.Context) error {
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

	var kind *model.ReviewKind
	if raw := c.QueryParam("kind"); raw != "" {
		k := model.ReviewKind(raw)
		if !k.Valid() {
			return writeErr(c, h.Log, model.NewValidationError(nil,
				model.FieldError{Field: "kind", Error: "unknown review kind"}))
		}
		kind = &k
	}
	out, err := h.Reviews.ListByOwner(ctx, ownerID, kind)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

type sectionReq struct {
	Text     string `json:"text" validate:"required"`
	Complete bool   `json:"complete"`
}

// SaveESSection writes the supervisor's section, draft or final.
func (h *ReviewHandler) SaveESSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req sectionReq
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
	r, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	snap, err := h.Resolver.Load(ctx, actor, r.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanSignOffES(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	now := time.Now().UTC()
	if req.Complete {
		err = r.CompleteESSection(req.Text, now)
	} else {
		err = r.SaveESSection(req.Text, now)
	}
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Reviews.SaveESSection(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}

	if req.Complete {
		h.Notifier.Publish(queue.NotificationEvent{
			Kind:       queue.EventReviewSectionSaved,
			UserID:     r.EYDUserID,
			Subject:    "Review ready for your reflection",
			Body:       "The supervisor section of your " + string(r.Kind) + " review (" + r.PeriodLabel + ") is complete.",
			OccurredAt: now.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, r)
}

// SaveEYDSection writes the trainee's reflection once the ES section is
// complete. Completing it locks an ad-hoc review.
func (h *ReviewHandler) SaveEYDSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req sectionReq
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
	r, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, r.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	if req.Complete {
		err = r.CompleteEYDSection(req.Text, now)
	} else {
		err = r.SaveEYDSection(req.Text, now)
	}
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Reviews.SaveEYDSection(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, r)
}

type panelReq struct {
	Outcome  string `json:"outcome" validate:"required,max=60"`
	Comments string `json:"comments"`
}

// CompletePanelSection records the panel outcome on an IRCP or FRCP review
// and locks it. Panels are chaired by the programme director.
func (h *ReviewHandler) CompletePanelSection(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req panelReq
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
	r, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	snap, err := h.Resolver.Load(ctx, actor, r.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanSignOffTPD(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	now := time.Now().UTC()
	if err := r.CompletePanelSection(req.Outcome, req.Comments, now); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Reviews.SavePanelSection(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventReviewSectionSaved,
		UserID:     r.EYDUserID,
		Subject:    "Review outcome recorded",
		Body:       "Your " + string(r.Kind) + " review (" + r.PeriodLabel + ") has the outcome: " + req.Outcome + ".",
		OccurredAt: now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, r)
}

type epaAssessmentReq struct {
	EPAID         uint64 `json:"epa_id" validate:"required"`
	Level         int    `json:"level" validate:"required"`
	Justification string `json:"justification" validate:"required"`
}

// AddEPAAssessment attaches a per-EPA entrustment rating to an IRCP/FRCP
// review while it is unlocked. One rating per EPA per review.
func (h *ReviewHandler) AddEPAAssessment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req epaAssessmentReq
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
	r, err := h.Reviews.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !r.Kind.HasPanel() {
		return writeErr(c, h.Log, model.ErrStateConflict)
	}
	if r.IsLocked {
		return writeErr(c, h.Log, model.ErrStateConflict)
	}
	snap, err := h.Resolver.Load(ctx, actor, r.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !authz.CanSignOffES(snap) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	a := model.EPAAssessment{
		ReviewID:      r.ID,
		EPAID:         req.EPAID,
		Level:         req.Level,
		Justification: req.Justification,
	}
	if !a.ValidLevel() {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "level", Error: "entrustment level must be between 1 and 5"}))
	}
	active, err := h.EPAs.ActiveIDSet(ctx)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !active[req.EPAID] {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "epa_id", Error: "unknown or inactive EPA"}))
	}
	if err := h.Reviews.AddAssessment(ctx, &a); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}
