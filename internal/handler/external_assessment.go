package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// ExternalAssessmentHandler serves the tokenized flow for assessors without
// an account. The path token is the sole credential; the routes carry no
// JWT middleware and are rate limited instead. Responses expose only what
// the external party needs: the event details, never the wider portfolio.
type ExternalAssessmentHandler struct {
	Log      *zap.Logger
	SLEs     *repository.SLERepo
	Notifier *queue.Publisher
}

func NewExternalAssessmentHandler(log *zap.Logger, sles *repository.SLERepo, notifier *queue.Publisher) *ExternalAssessmentHandler {
	return &ExternalAssessmentHandler{Log: log, SLEs: sles, Notifier: notifier}
}

func (h *ExternalAssessmentHandler) load(c echo.Context) (model.SLE, error) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		return model.SLE{}, model.ErrNotFound
	}
	ctx, cancel := reqContext(c)
	defer cancel()
	return h.SLEs.GetByToken(ctx, token)
}

// Get shows the invitation to the external assessor. A completed assessment
// renders read-only so a revisited link explains itself instead of erroring.
func (h *ExternalAssessmentHandler) Get(c echo.Context) error {
	s, err := h.load(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	resp := echo.Map{
		"title":          s.Title,
		"type":           s.Type,
		"scheduled_date": s.ScheduledDate,
		"assessor_name":  s.ExternalAssessorName,
		"completed":      s.IsAssessmentCompleted,
	}
	if s.IsAssessmentCompleted {
		resp["behaviour_feedback"] = s.BehaviourFeedback
		resp["agreed_action"] = s.AgreedAction
		resp["assessor_position"] = s.AssessorPosition
		resp["completed_at"] = s.AssessmentCompletedAt
	}
	return c.JSON(http.StatusOK, resp)
}

// Submit records the external assessment. The same single-completion rule
// as the internal flow applies: a second submission is a conflict.
func (h *ExternalAssessmentHandler) Submit(c echo.Context) error {
	var req assessmentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}

	s, err := h.load(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	now := time.Now().UTC()
	if err := s.CompleteAssessment(req.BehaviourFeedback, req.AgreedAction, req.AssessorPosition, now); err != nil {
		return writeErr(c, h.Log, err)
	}

	ctx, cancel := reqContext(c)
	defer cancel()
	if err := h.SLEs.SaveAssessment(ctx, &s); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventSLEAssessed,
		UserID:     s.EYDUserID,
		Subject:    "Assessment completed",
		Body:       s.ExternalAssessorName + " has completed the assessment for \"" + s.Title + "\". You can now add your reflection.",
		OccurredAt: now.Format(time.RFC3339),
	})
	return c.JSON(http.StatusOK, echo.Map{"completed": true})
}
