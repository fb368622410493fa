package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

const dbTimeout = 5 * time.Second

// reqContext bounds the database work of one request.
func reqContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// pathID parses the named numeric path parameter. Zero and garbage both
// come back as ErrNotFound, since no entity carries id 0.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, model.ErrNotFound
	}
	return id, nil
}

// pathIDFromString parses an id carried in a query parameter.
func pathIDFromString(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, model.ErrNotFound
	}
	return id, nil
}

// loadActor fetches the authenticated user fresh from storage so role or
// placement changes and deactivation apply on the very next request, not at
// the next login. A deactivated account is forbidden everywhere.
func loadActor(ctx context.Context, c echo.Context, users *repository.UserRepo) (model.User, error) {
	uid, _ := c.Get("user_id").(uint64)
	u, err := users.GetByID(ctx, uid)
	if err != nil {
		return model.User{}, model.ErrForbidden
	}
	if !u.IsActive {
		return model.User{}, model.ErrForbidden
	}
	return u, nil
}

// ownerParamOrSelf resolves the trainee whose records are addressed: EYDs
// always act on their own portfolio, other roles name the trainee in the
// :eydID path parameter.
func ownerParamOrSelf(c echo.Context, actor model.User) (uint64, error) {
	if actor.Role == model.RoleEYD {
		return actor.ID, nil
	}
	return pathID(c, "eydID")
}
