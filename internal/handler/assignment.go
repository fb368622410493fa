package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/queue"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// AssignmentHandler manages ES-EYD supervision links and temporary-access
// grants. Assignments are the backbone of ES visibility, so creation and
// deactivation are restricted to admins of the trainee's area.
type AssignmentHandler struct {
	Log         *zap.Logger
	Users       *repository.UserRepo
	Org         *repository.OrgRepo
	Assignments *repository.AssignmentRepo
	Notifier    *queue.Publisher
}

func NewAssignmentHandler(log *zap.Logger, users *repository.UserRepo, org *repository.OrgRepo,
	assignments *repository.AssignmentRepo, notifier *queue.Publisher) *AssignmentHandler {
	return &AssignmentHandler{Log: log, Users: users, Org: org, Assignments: assignments, Notifier: notifier}
}

// areaOfUser follows the scheme chain for scheme-placed users.
func (h *AssignmentHandler) areaOfUser(c echo.Context, u model.User) (uint64, bool) {
	ctx, cancel := reqContext(c)
	defer cancel()
	switch p := u.Placement(); p.Kind {
	case model.PlacedInArea:
		return p.ID, true
	case model.PlacedInScheme:
		area, err := h.Org.SchemeArea(ctx, p.ID)
		return area, err == nil
	}
	return 0, false
}

type createAssignmentReq struct {
	ESUserID  uint64 `json:"es_user_id" validate:"required"`
	EYDUserID uint64 `json:"eyd_user_id" validate:"required"`
}

// Create links a supervisor to a trainee. Both parties must hold the right
// role and sit in the acting admin's area; a second active link for the same
// pair is a duplicate.
func (h *AssignmentHandler) Create(c echo.Context) error {
	var req createAssignmentReq
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

	es, err := h.Users.GetByID(ctx, req.ESUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	eyd, err := h.Users.GetByID(ctx, req.EYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if es.Role != model.RoleES || eyd.Role != model.RoleEYD {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "es_user_id", Error: "pair must be an ES and an EYD"}))
	}
	if actor.Role != model.RoleSuperuser {
		esArea, ok1 := h.areaOfUser(c, es)
		eydArea, ok2 := h.areaOfUser(c, eyd)
		if !ok1 || !ok2 || !canManageArea(actor, esArea) || !canManageArea(actor, eydArea) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
	}

	a := model.ESAssignment{
		EYDUserID:    eyd.ID,
		ESUserID:     es.ID,
		AssignedDate: time.Now().UTC(),
		IsActive:     true,
	}
	if err := h.Assignments.Create(ctx, &a); err != nil {
		return writeErr(c, h.Log, err)
	}

	h.Notifier.Publish(queue.NotificationEvent{
		Kind:       queue.EventAssignmentCreated,
		UserID:     es.ID,
		Subject:    "New trainee assigned",
		Body:       "You have been assigned as educational supervisor for " + eyd.DisplayName + ".",
		OccurredAt: a.AssignedDate.Format(time.RFC3339),
	})
	return c.JSON(http.StatusCreated, a)
}

// Deactivate ends a supervision link. Like Create, the acting admin must
// manage the trainee's area; visibility through the link stops on the
// supervisor's very next request.
func (h *AssignmentHandler) Deactivate(c echo.Context) error {
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
	if actor.Role != model.RoleSuperuser && actor.Role != model.RoleAdmin {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	a, err := h.Assignments.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.Role != model.RoleSuperuser {
		eyd, err := h.Users.GetByID(ctx, a.EYDUserID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		area, ok := h.areaOfUser(c, eyd)
		if !ok || !canManageArea(actor, area) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
	}

	if err := h.Assignments.Deactivate(ctx, id); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns the assignments visible to the actor: an ES sees their own,
// an EYD sees who supervises them, admins and superusers query by either
// side.
func (h *AssignmentHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	switch actor.Role {
	case model.RoleES:
		out, err := h.Assignments.ListByES(ctx, actor.ID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, out)
	case model.RoleEYD:
		out, err := h.Assignments.ListByEYD(ctx, actor.ID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, out)
	case model.RoleAdmin, model.RoleSuperuser:
		if raw := c.QueryParam("es_user_id"); raw != "" {
			id, err := pathIDFromString(raw)
			if err != nil {
				return writeErr(c, h.Log, err)
			}
			out, err := h.Assignments.ListByES(ctx, id)
			if err != nil {
				return writeErr(c, h.Log, err)
			}
			return c.JSON(http.StatusOK, out)
		}
		if raw := c.QueryParam("eyd_user_id"); raw != "" {
			id, err := pathIDFromString(raw)
			if err != nil {
				return writeErr(c, h.Log, err)
			}
			out, err := h.Assignments.ListByEYD(ctx, id)
			if err != nil {
				return writeErr(c, h.Log, err)
			}
			return c.JSON(http.StatusOK, out)
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "es_user_id or eyd_user_id required"})
	}
	return writeErr(c, h.Log, model.ErrForbidden)
}

type tempAccessReq struct {
	TargetEYDUserID uint64 `json:"target_eyd_user_id" validate:"required"`
	Reason          string `json:"reason" validate:"required,max=500"`
}

// RequestTempAccess records a cross-hierarchy access request by an ES or
// TPD. Grants are tracked and approved through the API but do not widen the
// resolver's decisions.
func (h *AssignmentHandler) RequestTempAccess(c echo.Context) error {
	var req tempAccessReq
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
	if actor.Role != model.RoleES && actor.Role != model.RoleTPD {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	target, err := h.Users.GetByID(ctx, req.TargetEYDUserID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if target.Role != model.RoleEYD {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "target_eyd_user_id", Error: "target must be an EYD"}))
	}

	t := model.TemporaryAccess{
		RequestingUserID: actor.ID,
		TargetEYDUserID:  target.ID,
		Reason:           req.Reason,
		RequestedDate:    time.Now().UTC(),
		IsActive:         true,
	}
	if err := h.Assignments.CreateTempAccess(ctx, &t); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

type approveTempAccessReq struct {
	ExpiryDate time.Time `json:"expiry_date" validate:"required"`
}

// ApproveTempAccess grants a pending request with an expiry date. Only
// admins and superusers approve.
func (h *AssignmentHandler) ApproveTempAccess(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req approveTempAccessReq
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
	if actor.Role != model.RoleSuperuser && actor.Role != model.RoleAdmin {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	t, err := h.Assignments.GetTempAccess(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := t.Approve(actor.ID, req.ExpiryDate.UTC(), time.Now().UTC()); err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Assignments.SaveTempAccessApproval(ctx, &t); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// ListTempAccess returns the actor's own requests.
func (h *AssignmentHandler) ListTempAccess(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	out, err := h.Assignments.ListTempAccessByRequester(ctx, actor.ID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
