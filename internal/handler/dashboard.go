package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/dashboard"
	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/export"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// DashboardHandler serves the per-role landing summaries, the EPA coverage
// matrix and its workbook export. Every trainee-level figure goes through
// the resolver first, so a dashboard can never show what a direct request
// would refuse.
type DashboardHandler struct {
	Log        *zap.Logger
	Users      *repository.UserRepo
	Org        *repository.OrgRepo
	Dashboards *repository.DashboardRepo
	EPAs       *repository.EPARepo
	Resolver   *authz.Resolver
}

func NewDashboardHandler(log *zap.Logger, users *repository.UserRepo, org *repository.OrgRepo,
	dash *repository.DashboardRepo, epas *repository.EPARepo, res *authz.Resolver) *DashboardHandler {
	return &DashboardHandler{Log: log, Users: users, Org: org, Dashboards: dash, EPAs: epas, Resolver: res}
}

// Summary is the role-dependent landing view.
func (h *DashboardHandler) Summary(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	switch actor.Role {
	case model.RoleEYD:
		rows, err := h.Dashboards.StatusCounts(ctx, actor.ID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, dashboard.Summarize(rows))

	case model.RoleES:
		trainees, err := h.Dashboards.AssignedTrainees(ctx, actor.ID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return h.traineeSummaries(c, trainees)

	case model.RoleTPD:
		if actor.SchemeID == nil {
			return c.JSON(http.StatusOK, []dashboard.TraineeSummary{})
		}
		areaID, err := h.Org.SchemeArea(ctx, *actor.SchemeID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		trainees, err := h.Dashboards.AreaTrainees(ctx, areaID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return h.traineeSummaries(c, trainees)

	case model.RoleAdmin:
		if actor.AreaID == nil {
			return writeErr(c, h.Log, model.ErrForbidden)
		}
		counts, err := h.Dashboards.RoleCounts(ctx, actor.AreaID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"role_counts": counts})

	case model.RoleDean, model.RoleSuperuser:
		counts, err := h.Dashboards.RoleCounts(ctx, nil)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"role_counts": counts})
	}
	return writeErr(c, h.Log, model.ErrForbidden)
}

func (h *DashboardHandler) traineeSummaries(c echo.Context, trainees []repository.Trainee) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	out := make([]dashboard.TraineeSummary, 0, len(trainees))
	for _, t := range trainees {
		rows, err := h.Dashboards.StatusCounts(ctx, t.ID)
		if err != nil {
			return writeErr(c, h.Log, err)
		}
		out = append(out, dashboard.TraineeSummary{
			EYDUserID:   t.ID,
			DisplayName: t.DisplayName,
			Summary:     dashboard.Summarize(rows),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// TraineeSummary returns one trainee's summary for a viewer with access.
func (h *DashboardHandler) TraineeSummary(c echo.Context) error {
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
	rows, err := h.Dashboards.StatusCounts(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, dashboard.Summarize(rows))
}

// buildMatrix assembles the coverage matrix for one trainee after the view
// check.
func (h *DashboardHandler) buildMatrix(c echo.Context) (epa.Matrix, error) {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return epa.Matrix{}, err
	}
	ownerID, err := ownerParamOrSelf(c, actor)
	if err != nil {
		return epa.Matrix{}, err
	}
	if _, err := h.Resolver.RequireView(ctx, actor, ownerID); err != nil {
		return epa.Matrix{}, err
	}

	epas, err := h.EPAs.ListActive(ctx)
	if err != nil {
		return epa.Matrix{}, err
	}
	rows, err := h.EPAs.MatrixRows(ctx, ownerID)
	if err != nil {
		return epa.Matrix{}, err
	}
	return epa.BuildMatrix(epas, rows), nil
}

// Matrix returns the EPA x activity coverage grid.
func (h *DashboardHandler) Matrix(c echo.Context) error {
	m, err := h.buildMatrix(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// MatrixExport downloads the grid as an xlsx workbook.
func (h *DashboardHandler) MatrixExport(c echo.Context) error {
	m, err := h.buildMatrix(c)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	book, err := export.MatrixXLSX(m)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="epa-matrix.xlsx"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book)
}
