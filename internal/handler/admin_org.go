package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// OrgHandler manages the Area -> Scheme reference hierarchy. Areas are
// superuser-only; schemes can also be managed by an admin inside their own
// area.
type OrgHandler struct {
	Log   *zap.Logger
	Users *repository.UserRepo
	Org   *repository.OrgRepo
}

func NewOrgHandler(log *zap.Logger, users *repository.UserRepo, org *repository.OrgRepo) *OrgHandler {
	return &OrgHandler{Log: log, Users: users, Org: org}
}

// canManageArea reports whether the actor may change reference data under
// the given area.
func canManageArea(actor model.User, areaID uint64) bool {
	if actor.Role == model.RoleSuperuser {
		return true
	}
	return actor.Role == model.RoleAdmin && actor.AreaID != nil && *actor.AreaID == areaID
}

type areaReq struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *OrgHandler) CreateArea(c echo.Context) error {
	var req areaReq
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
	if actor.Role != model.RoleSuperuser {
		return writeErr(c, h.Log, model.ErrForbidden)
	}

	area := model.Area{Name: req.Name}
	if err := h.Org.CreateArea(ctx, &area); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, area)
}

func (h *OrgHandler) ListAreas(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := loadActor(ctx, c, h.Users); err != nil {
		return writeErr(c, h.Log, err)
	}
	areas, err := h.Org.ListAreas(ctx)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, areas)
}

func (h *OrgHandler) RenameArea(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	var req areaReq
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
	if actor.Role != model.RoleSuperuser {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	if err := h.Org.RenameArea(ctx, id, req.Name); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type schemeReq struct {
	Name   string `json:"name" validate:"required,max=120"`
	AreaID uint64 `json:"area_id" validate:"required"`
}

func (h *OrgHandler) CreateScheme(c echo.Context) error {
	var req schemeReq
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
	if !canManageArea(actor, req.AreaID) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	// the parent area must exist before hanging a scheme under it
	if _, err := h.Org.GetArea(ctx, req.AreaID); err != nil {
		return writeErr(c, h.Log, err)
	}

	scheme := model.Scheme{Name: req.Name, AreaID: req.AreaID}
	if err := h.Org.CreateScheme(ctx, &scheme); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, scheme)
}

func (h *OrgHandler) ListSchemes(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	if _, err := loadActor(ctx, c, h.Users); err != nil {
		return writeErr(c, h.Log, err)
	}

	var areaID *uint64
	if raw := c.QueryParam("area_id"); raw != "" {
		id, err := pathIDFromString(raw)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		areaID = &id
	}
	schemes, err := h.Org.ListSchemes(ctx, areaID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, schemes)
}

// DeleteScheme removes a scheme after detaching its users and deactivating
// the assignments of its trainees, all in one transaction.
func (h *OrgHandler) DeleteScheme(c echo.Context) error {
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
	scheme, err := h.Org.GetScheme(ctx, id)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if !canManageArea(actor, scheme.AreaID) {
		return writeErr(c, h.Log, model.ErrForbidden)
	}
	if err := h.Org.DeleteScheme(ctx, id); err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
