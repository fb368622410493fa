package model

import "time"

// Role enumerates the application roles. Values match what is stored in the
// users.role column and carried in the JWT "role" claim.
type Role string

const (
	RoleSuperuser Role = "SUPERUSER"
	RoleAdmin     Role = "ADMIN"
	RoleDean      Role = "DEAN"
	RoleTPD       Role = "TPD"
	RoleES        Role = "ES"
	RoleEYD       Role = "EYD"
)

// KnownRoles lists every accepted role, used by request validation.
var KnownRoles = []Role{RoleSuperuser, RoleAdmin, RoleDean, RoleTPD, RoleES, RoleEYD}

// Valid reports whether r is one of the known roles. Unknown roles must be
// treated as having no permissions at all.
func (r Role) Valid() bool {
	for _, k := range KnownRoles {
		if r == k {
			return true
		}
	}
	return false
}

// UsesArea reports whether the role is placed directly under an Area.
func (r Role) UsesArea() bool { return r == RoleAdmin || r == RoleES }

// UsesScheme reports whether the role is placed under a Scheme.
func (r Role) UsesScheme() bool { return r == RoleTPD || r == RoleEYD }

// User mirrors the users table. AreaID and SchemeID are both nullable in
// storage; the rule that at most one is meaningful per role is enforced by
// SetPlacement on every write, not by the schema.
type User struct {
	ID           uint64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         Role
	AreaID       *uint64
	SchemeID     *uint64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetPlacement assigns the area or scheme appropriate for the user's role
// and unconditionally clears the other column. Roles that use neither
// (DEAN, SUPERUSER) end up with both cleared regardless of the arguments.
func (u *User) SetPlacement(areaID, schemeID *uint64) {
	u.AreaID, u.SchemeID = nil, nil
	switch {
	case u.Role.UsesArea():
		u.AreaID = areaID
	case u.Role.UsesScheme():
		u.SchemeID = schemeID
	}
}

// PlacementKind tags the single meaningful placement of a user.
type PlacementKind int

const (
	PlacedNowhere PlacementKind = iota
	PlacedInArea
	PlacedInScheme
)

// Placement is the tagged view over the two nullable placement columns.
type Placement struct {
	Kind PlacementKind
	ID   uint64
}

// Placement returns the user's effective placement, ignoring any stale value
// in the column the role does not use.
func (u *User) Placement() Placement {
	switch {
	case u.Role.UsesArea() && u.AreaID != nil:
		return Placement{Kind: PlacedInArea, ID: *u.AreaID}
	case u.Role.UsesScheme() && u.SchemeID != nil:
		return Placement{Kind: PlacedInScheme, ID: *u.SchemeID}
	}
	return Placement{Kind: PlacedNowhere}
}
