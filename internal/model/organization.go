package model

// Area is the root of the organizational hierarchy. Areas own schemes and
// place ADMIN and ES users directly. There is no delete endpoint for areas.
type Area struct {
	ID   uint64
	Name string
}

// Scheme belongs to exactly one area and places TPD and EYD users. Deleting
// a scheme nulls the scheme of its members and deactivates the active ES-EYD
// assignments of its EYDs, in one transaction.
type Scheme struct {
	ID     uint64
	Name   string
	AreaID uint64
}
