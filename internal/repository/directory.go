package repository

import (
	"context"

	"github.com/dentraining/portfolio-api/internal/model"
)

// AuthDirectory bundles the three lookups the authorization resolver
// performs into one value built over the existing repositories.
type AuthDirectory struct {
	Users       *UserRepo
	Assignments *AssignmentRepo
	Org         *OrgRepo
}

func (d AuthDirectory) GetUser(ctx context.Context, id uint64) (model.User, error) {
	return d.Users.GetByID(ctx, id)
}

func (d AuthDirectory) HasActiveAssignment(ctx context.Context, esUserID, eydUserID uint64) (bool, error) {
	return d.Assignments.HasActive(ctx, esUserID, eydUserID)
}

func (d AuthDirectory) SchemeArea(ctx context.Context, schemeID uint64) (uint64, error) {
	return d.Org.SchemeArea(ctx, schemeID)
}
