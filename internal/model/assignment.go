package model

import "time"

// ESAssignment links an educational supervisor to a trainee. It is the
// single source of truth for "can this ES see this EYD's records". Rows are
// never hard-deleted; deactivation flips IsActive and takes effect on the
// next request. At most one active row may exist per (es, eyd) pair, which
// is checked at write time rather than by a schema constraint.
type ESAssignment struct {
	ID           uint64
	EYDUserID    uint64
	ESUserID     uint64
	AssignedDate time.Time
	IsActive     bool
}

// TemporaryAccess is a request/approve/expire grant for cross-hierarchy
// visibility (e.g. a TPD needing an EYD outside their scheme). The full
// lifecycle is persisted and manageable through the API, but the
// authorization resolver deliberately does not consult it; see DESIGN.md.
type TemporaryAccess struct {
	ID               uint64
	RequestingUserID uint64
	TargetEYDUserID  uint64
	Reason           string
	RequestedDate    time.Time
	ApprovedDate     *time.Time
	ExpiryDate       *time.Time
	IsApproved       bool
	IsActive         bool
	ApprovedByUserID *uint64
}

// Approve marks the request granted. Approving twice is a state conflict.
func (t *TemporaryAccess) Approve(byUserID uint64, expiry time.Time, now time.Time) error {
	if t.IsApproved {
		return ErrStateConflict
	}
	if !t.IsActive {
		return ErrStateConflict
	}
	t.IsApproved = true
	t.ApprovedDate = &now
	t.ExpiryDate = &expiry
	t.ApprovedByUserID = &byUserID
	return nil
}

// Expired reports whether an approved grant has passed its expiry.
func (t *TemporaryAccess) Expired(now time.Time) bool {
	return t.IsApproved && t.ExpiryDate != nil && now.After(*t.ExpiryDate)
}
