package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
	"github.com/dentraining/portfolio-api/internal/utils"
)

// UserAdminHandler provisions and manages accounts. Admins operate inside
// their own area (users placed directly in it or in one of its schemes);
// superusers operate everywhere.
type UserAdminHandler struct {
	Cfg   config.Config
	Log   *zap.Logger
	Users *repository.UserRepo
	Org   *repository.OrgRepo
}

func NewUserAdminHandler(cfg config.Config, log *zap.Logger, users *repository.UserRepo, org *repository.OrgRepo) *UserAdminHandler {
	return &UserAdminHandler{Cfg: cfg, Log: log, Users: users, Org: org}
}

type createUserReq struct {
	Email       string  `json:"email" validate:"required,email"`
	DisplayName string  `json:"display_name" validate:"required,max=120"`
	Password    string  `json:"password" validate:"required,min=10"`
	Role        string  `json:"role" validate:"required"`
	AreaID      *uint64 `json:"area_id"`
	SchemeID    *uint64 `json:"scheme_id"`
}

// placementArea resolves the area a proposed placement lands in, following
// the scheme chain for scheme-placed roles. Roles without placement return
// (0, false).
func (h *UserAdminHandler) placementArea(c echo.Context, role model.Role, areaID, schemeID *uint64) (uint64, bool, error) {
	ctx, cancel := reqContext(c)
	defer cancel()
	switch {
	case role.UsesArea():
		if areaID == nil {
			return 0, false, model.NewValidationError(nil,
				model.FieldError{Field: "area_id", Error: "required for this role"})
		}
		if _, err := h.Org.GetArea(ctx, *areaID); err != nil {
			return 0, false, err
		}
		return *areaID, true, nil
	case role.UsesScheme():
		if schemeID == nil {
			return 0, false, model.NewValidationError(nil,
				model.FieldError{Field: "scheme_id", Error: "required for this role"})
		}
		area, err := h.Org.SchemeArea(ctx, *schemeID)
		if err != nil {
			return 0, false, err
		}
		return area, true, nil
	}
	return 0, false, nil
}

// CreateUser provisions an account. Admins may only create TPD, ES and EYD
// accounts placed inside their own area; superusers may create any role.
func (h *UserAdminHandler) CreateUser(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return writeErr(c, h.Log, err)
	}
	role := model.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
	if !role.Valid() {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "role", Error: "unknown role"}))
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	placedArea, placed, err := h.placementArea(c, role, req.AreaID, req.SchemeID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.Role != model.RoleSuperuser {
		switch role {
		case model.RoleSuperuser, model.RoleAdmin, model.RoleDean:
			return writeErr(c, h.Log, model.ErrForbidden)
		}
		if !placed || !canManageArea(actor, placedArea) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	u := model.User{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	u.SetPlacement(req.AreaID, req.SchemeID)
	if err := h.Users.Create(ctx, &u); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":           u.ID,
		"email":        u.Email,
		"display_name": u.DisplayName,
		"role":         u.Role,
		"area_id":      u.AreaID,
		"scheme_id":    u.SchemeID,
	})
}

// ListUsers lists accounts of one role, optionally filtered by area or
// scheme. Admins are implicitly pinned to their own area.
func (h *UserAdminHandler) ListUsers(c echo.Context) error {
	role := model.Role(strings.ToUpper(c.QueryParam("role")))
	if !role.Valid() {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "role", Error: "unknown role"}))
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	var areaID, schemeID *uint64
	if raw := c.QueryParam("area_id"); raw != "" {
		id, err := pathIDFromString(raw)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		areaID = &id
	}
	if raw := c.QueryParam("scheme_id"); raw != "" {
		id, err := pathIDFromString(raw)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		schemeID = &id
	}
	if actor.Role == model.RoleAdmin {
		if actor.AreaID == nil {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
		areaID = actor.AreaID
	}

	users, err := h.Users.ListByRole(ctx, role, areaID, schemeID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	out := make([]echo.Map, 0, len(users))
	for _, u := range users {
		out = append(out, echo.Map{
			"id":           u.ID,
			"email":        u.Email,
			"display_name": u.DisplayName,
			"role":         u.Role,
			"area_id":      u.AreaID,
			"scheme_id":    u.SchemeID,
			"is_active":    u.IsActive,
		})
	}
	return c.JSON(http.StatusOK, out)
}

type placementReq struct {
	AreaID   *uint64 `json:"area_id"`
	SchemeID *uint64 `json:"scheme_id"`
}

// UpdatePlacement moves a user to a new area or scheme. The role decides
// which of the two is meaningful; the other is cleared.
func (h *UserAdminHandler) UpdatePlacement(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req placementReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	placedArea, placed, err := h.placementArea(c, target.Role, req.AreaID, req.SchemeID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.Role != model.RoleSuperuser {
		// the admin must control both the current and the new placement
		if cur, ok := h.currentArea(c, target); !ok || !canManageArea(actor, cur) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
		if !placed || !canManageArea(actor, placedArea) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
	}

	target.SetPlacement(req.AreaID, req.SchemeID)
	if err := h.Users.UpdatePlacement(ctx, &target); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// currentArea resolves the target's present area, if any.
func (h *UserAdminHandler) currentArea(c echo.Context, u model.User) (uint64, bool) {
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

type resetPasswordReq struct {
	Password string `json:"password" validate:"required,min=10"`
}

// ResetPassword sets a new password for a user the actor administers.
func (h *UserAdminHandler) ResetPassword(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req resetPasswordReq
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
	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.Role != model.RoleSuperuser {
		if cur, ok := h.currentArea(c, target); !ok || !canManageArea(actor, cur) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if err := h.Users.UpdatePassword(ctx, id, hash); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type setActiveReq struct {
	IsActive bool `json:"is_active"`
}

// SetActive activates or deactivates an account. Deactivation cuts access on
// the next request since the actor is re-loaded per request.
func (h *UserAdminHandler) SetActive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.ID == id {
		return writeErr(c, h.Log, model.ErrStateConflict)
	}
	target, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if actor.Role != model.RoleSuperuser {
		if cur, ok := h.currentArea(c, target); !ok || !canManageArea(actor, cur) {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
	}
	if err := h.Users.SetActive(ctx, id, req.IsActive); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
