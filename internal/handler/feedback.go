package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
	"github.com/dentraining/portfolio-api/internal/utils"
)

// FeedbackHandler covers the PSQ and MSF questionnaires. The owner manages
// rounds and reads aggregates; respondents reach the form anonymously
// through the unique code, with no account and no identity stored.
type FeedbackHandler struct {
	Cfg            config.Config
	Log            *zap.Logger
	Users          *repository.UserRepo
	Questionnaires *repository.QuestionnaireRepo
	Resolver       *authz.Resolver
}

func NewFeedbackHandler(cfg config.Config, log *zap.Logger, users *repository.UserRepo,
	q *repository.QuestionnaireRepo, res *authz.Resolver) *FeedbackHandler {
	return &FeedbackHandler{Cfg: cfg, Log: log, Users: users, Questionnaires: q, Resolver: res}
}

func parseKind(raw string) (model.QuestionnaireKind, bool) {
	k := model.QuestionnaireKind(strings.ToUpper(strings.TrimSpace(raw)))
	return k, k.Valid()
}

// publicURL is the address a respondent opens; it is what the QR code
// encodes.
func (h *FeedbackHandler) publicURL(q model.Questionnaire) string {
	return h.Cfg.PublicBaseURL + "/v1/feedback/" + strings.ToLower(string(q.Kind)) + "/" + q.UniqueCode
}

type createQuestionnaireReq struct {
	Kind  string `json:"kind" validate:"required"`
	Title string `json:"title" validate:"required,max=200"`
}

// Create opens a questionnaire round and mints its unique code.
func (h *FeedbackHandler) Create(c echo.Context) error {
	var req createQuestionnaireReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}
	kind, ok := parseKind(req.Kind)
	if !ok {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "kind", Error: "kind must be PSQ or MSF"}))
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
	code, err := utils.UniqueCode()
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	q := model.Questionnaire{Kind: kind, EYDUserID: actor.ID, Title: req.Title, UniqueCode: code}
	if err := h.Questionnaires.Create(ctx, &q); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"questionnaire": q, "share_url": h.publicURL(q)})
}

// List returns a trainee's questionnaire rounds of one kind.
func (h *FeedbackHandler) List(c echo.Context) error {
	kind, ok := parseKind(c.QueryParam("kind"))
	if !ok {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "kind", Error: "kind must be PSQ or MSF"}))
	}

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
	out, err := h.Questionnaires.ListByOwner(ctx, kind, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Close stops a round from accepting submissions.
func (h *FeedbackHandler) Close(c echo.Context) error {
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
	q, err := h.Questionnaires.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, q.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := q.Close(); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Questionnaires.Close(ctx, q.ID); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}

// Summary returns the response count and per-question means. Individual
// responses are never listed; the aggregate is the only owner-facing view.
func (h *FeedbackHandler) Summary(c echo.Context) error {
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
	q, err := h.Questionnaires.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, q.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}

	var summary repository.ResponseSummary
	if q.Kind == model.QuestionnairePSQ {
		summary, err = h.Questionnaires.PSQSummary(ctx, q.ID)
	} else {
		summary, err = h.Questionnaires.MSFSummary(ctx, q.ID)
	}
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"questionnaire": q, "summary": summary})
}

// QR renders the share URL as a PNG for printing in the practice waiting
// room.
func (h *FeedbackHandler) QR(c echo.Context) error {
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
	q, err := h.Questionnaires.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireOwner(ctx, actor, q.EYDUserID); err != nil {
		return writeErr(c, h.Log, err)
	}

	png, err := qrcode.Encode(h.publicURL(q), qrcode.Medium, 512)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

// loadOpen resolves a public code to an open questionnaire. Unknown codes
// and closed rounds are indistinguishable to respondents.
func (h *FeedbackHandler) loadOpen(c echo.Context) (model.Questionnaire, error) {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		return model.Questionnaire{}, model.ErrNotFound
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return model.Questionnaire{}, model.ErrNotFound
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	q, err := h.Questionnaires.GetByCode(ctx, kind, code)
	if err != nil {
		return model.Questionnaire{}, err
	}
	if !q.IsActive {
		return model.Questionnaire{}, model.ErrNotFound
	}
	return q, nil
}

// PublicGet shows the form metadata to an anonymous respondent.
func (h *FeedbackHandler) PublicGet(c echo.Context) error {
	q, err := h.loadOpen(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"kind": q.Kind, "title": q.Title})
}

// Submit routes an anonymous submission to the form matching the kind in
// the path.
func (h *FeedbackHandler) Submit(c echo.Context) error {
	kind, ok := parseKind(c.Param("kind"))
	if !ok {
		return writeErr(c, h.Log, model.ErrNotFound)
	}
	if kind == model.QuestionnairePSQ {
		return h.SubmitPSQ(c)
	}
	return h.SubmitMSF(c)
}

type psqResponseReq struct {
	PutAtEase           int    `json:"put_at_ease" validate:"required,min=1,max=5"`
	ListenedCarefully   int    `json:"listened_carefully" validate:"required,min=1,max=5"`
	ExplainedClearly    int    `json:"explained_clearly" validate:"required,min=1,max=5"`
	InvolvedInDecisions int    `json:"involved_in_decisions" validate:"required,min=1,max=5"`
	TreatedWithRespect  int    `json:"treated_with_respect" validate:"required,min=1,max=5"`
	OverallSatisfaction int    `json:"overall_satisfaction" validate:"required,min=1,max=5"`
	WhatWentWell        string `json:"what_went_well" validate:"max=2000"`
	CouldImprove        string `json:"could_improve" validate:"max=2000"`
}

// SubmitPSQ stores one anonymous patient response.
func (h *FeedbackHandler) SubmitPSQ(c echo.Context) error {
	q, err := h.loadOpen(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if q.Kind != model.QuestionnairePSQ {
		return writeErr(c, h.Log, model.ErrNotFound)
	}
	var req psqResponseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	r := model.PSQResponse{
		QuestionnaireID:     q.ID,
		PutAtEase:           req.PutAtEase,
		ListenedCarefully:   req.ListenedCarefully,
		ExplainedClearly:    req.ExplainedClearly,
		InvolvedInDecisions: req.InvolvedInDecisions,
		TreatedWithRespect:  req.TreatedWithRespect,
		OverallSatisfaction: req.OverallSatisfaction,
		WhatWentWell:        req.WhatWentWell,
		CouldImprove:        req.CouldImprove,
	}
	if err := h.Questionnaires.AddPSQResponse(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"submitted": true})
}

type msfResponseReq struct {
	ClinicalSkills      int    `json:"clinical_skills" validate:"required,min=1,max=5"`
	Communication       int    `json:"communication" validate:"required,min=1,max=5"`
	Teamwork            int    `json:"teamwork" validate:"required,min=1,max=5"`
	Professionalism     int    `json:"professionalism" validate:"required,min=1,max=5"`
	Reliability         int    `json:"reliability" validate:"required,min=1,max=5"`
	OverallImpression   int    `json:"overall_impression" validate:"required,min=1,max=5"`
	Strengths           string `json:"strengths" validate:"max=2000"`
	AreasForDevelopment string `json:"areas_for_development" validate:"max=2000"`
}

// SubmitMSF stores one anonymous colleague response.
func (h *FeedbackHandler) SubmitMSF(c echo.Context) error {
	q, err := h.loadOpen(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if q.Kind != model.QuestionnaireMSF {
		return writeErr(c, h.Log, model.ErrNotFound)
	}
	var req msfResponseReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	r := model.MSFResponse{
		QuestionnaireID:     q.ID,
		ClinicalSkills:      req.ClinicalSkills,
		Communication:       req.Communication,
		Teamwork:            req.Teamwork,
		Professionalism:     req.Professionalism,
		Reliability:         req.Reliability,
		OverallImpression:   req.OverallImpression,
		Strengths:           req.Strengths,
		AreasForDevelopment: req.AreasForDevelopment,
	}
	if err := h.Questionnaires.AddMSFResponse(ctx, &r); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"submitted": true})
}
