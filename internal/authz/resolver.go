// Package authz is the single authorization component consulted by every
// portfolio handler. Permissions are re-derived from the assignment graph on
// each request — there is no cached or session-level permission state, so a
// deactivated ES-EYD assignment or a scheme move takes effect immediately.
//
// The decision rules are pure functions over a Snapshot; the Resolver loads
// the snapshot through narrow repository interfaces and maps a missing owner
// to model.ErrNotFound so handlers keep "absent" and "refused" distinct.
package authz

import (
	"context"

	"github.com/dentraining/portfolio-api/internal/model"
)

// Directory is the slice of the storage layer the resolver reads.
type Directory interface {
	GetUser(ctx context.Context, id uint64) (model.User, error)
	HasActiveAssignment(ctx context.Context, esUserID, eydUserID uint64) (bool, error)
	SchemeArea(ctx context.Context, schemeID uint64) (uint64, error)
}

// Snapshot is everything the decision rules need about one (actor, owner)
// pair, loaded fresh per request.
type Snapshot struct {
	Actor            model.User
	Owner            model.User
	ActiveAssignment bool    // active ES-EYD link from actor to owner
	ActorAreaID      *uint64 // actor's area, direct or via their scheme
	OwnerAreaID      *uint64 // owner's area via their scheme
}

// Decision is the generic portfolio-entity outcome. Entity-specific edit
// rights (ES induction authorship, sign-offs, need completion) have their
// own predicates below.
type Decision struct {
	CanView bool
	CanEdit bool
}

func sameArea(a, b *uint64) bool { return a != nil && b != nil && *a == *b }

// Decide applies the role rules for viewing and editing an EYD-owned
// portfolio entity. Unknown roles are denied everything.
func Decide(s Snapshot) Decision {
	switch s.Actor.Role {
	case model.RoleEYD:
		own := s.Actor.ID == s.Owner.ID
		return Decision{CanView: own, CanEdit: own}
	case model.RoleES:
		// view through the active assignment only; ES never edits
		// EYD-authored content
		return Decision{CanView: s.ActiveAssignment}
	case model.RoleTPD:
		return Decision{CanView: sameArea(s.ActorAreaID, s.OwnerAreaID)}
	case model.RoleDean:
		// deans hold no placement and read everywhere, edit nowhere
		return Decision{CanView: true}
	case model.RoleAdmin:
		// admins manage reference data and users in their area but never
		// touch portfolio content
		return Decision{CanView: sameArea(s.ActorAreaID, s.OwnerAreaID)}
	case model.RoleSuperuser:
		return Decision{CanView: true, CanEdit: true}
	}
	return Decision{}
}

// CanSignOffES reports whether the actor may record the supervisor sign-off
// on the owner's significant event.
func CanSignOffES(s Snapshot) bool {
	if s.Actor.Role == model.RoleSuperuser {
		return true
	}
	return s.Actor.Role == model.RoleES && s.ActiveAssignment
}

// CanSignOffTPD reports whether the actor may record the programme-director
// sign-off: the actor's scheme must resolve to the same area as the owner's.
func CanSignOffTPD(s Snapshot) bool {
	if s.Actor.Role == model.RoleSuperuser {
		return true
	}
	return s.Actor.Role == model.RoleTPD && sameArea(s.ActorAreaID, s.OwnerAreaID)
}

// CanCompleteLearningNeed reports whether the actor may complete the owner's
// learning need. The owner themselves can never complete it.
func CanCompleteLearningNeed(s Snapshot) bool {
	switch s.Actor.Role {
	case model.RoleSuperuser:
		return true
	case model.RoleES:
		return s.ActiveAssignment
	case model.RoleTPD:
		return sameArea(s.ActorAreaID, s.OwnerAreaID)
	}
	return false
}

// Resolver loads snapshots from the directory.
type Resolver struct {
	dir Directory
}

func NewResolver(dir Directory) *Resolver { return &Resolver{dir: dir} }

// Load assembles the snapshot for actor acting on the portfolio owned by
// ownerID. A missing owner yields model.ErrNotFound.
func (r *Resolver) Load(ctx context.Context, actor model.User, ownerID uint64) (Snapshot, error) {
	s := Snapshot{Actor: actor}

	owner, err := r.dir.GetUser(ctx, ownerID)
	if err != nil {
		return s, err
	}
	s.Owner = owner

	if actor.Role == model.RoleES || actor.Role == model.RoleSuperuser {
		ok, err := r.dir.HasActiveAssignment(ctx, actor.ID, ownerID)
		if err != nil {
			return s, err
		}
		s.ActiveAssignment = ok
	}

	if s.ActorAreaID, err = r.areaOf(ctx, actor); err != nil {
		return s, err
	}
	if s.OwnerAreaID, err = r.areaOf(ctx, owner); err != nil {
		return s, err
	}
	return s, nil
}

// areaOf resolves a user's area, following the scheme chain for scheme-
// placed roles.
func (r *Resolver) areaOf(ctx context.Context, u model.User) (*uint64, error) {
	switch p := u.Placement(); p.Kind {
	case model.PlacedInArea:
		id := p.ID
		return &id, nil
	case model.PlacedInScheme:
		areaID, err := r.dir.SchemeArea(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &areaID, nil
	}
	return nil, nil
}

// RequireView loads the snapshot and enforces view access, returning
// model.ErrForbidden when the entity exists but the actor may not see it.
func (r *Resolver) RequireView(ctx context.Context, actor model.User, ownerID uint64) (Snapshot, error) {
	s, err := r.Load(ctx, actor, ownerID)
	if err != nil {
		return s, err
	}
	if !Decide(s).CanView {
		return s, model.ErrForbidden
	}
	return s, nil
}

// RequireOwner enforces that the actor is the EYD who owns the record (or a
// superuser). Used on every owner-edit path.
func (r *Resolver) RequireOwner(ctx context.Context, actor model.User, ownerID uint64) (Snapshot, error) {
	s, err := r.Load(ctx, actor, ownerID)
	if err != nil {
		return s, err
	}
	if actor.Role == model.RoleSuperuser {
		return s, nil
	}
	if actor.Role != model.RoleEYD || actor.ID != ownerID {
		return s, model.ErrForbidden
	}
	return s, nil
}
