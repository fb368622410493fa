package model

import "time"

// EPA is one entry of the fixed ten-row competency catalog. The catalog is
// seeded at boot and treated as immutable reference data.
type EPA struct {
	ID          uint64
	Code        string
	Title       string
	Description string
	IsActive    bool
}

// EntityKind discriminates which table an EPA mapping points into. It is a
// closed enum rather than free text so an unknown kind fails validation
// instead of silently creating an unreachable mapping.
type EntityKind string

const (
	KindReflection       EntityKind = "Reflection"
	KindPLT              EntityKind = "ProtectedLearningTime"
	KindSignificantEvent EntityKind = "SignificantEvent"
	KindLearningNeed     EntityKind = "LearningNeed"
	KindClinicalLog      EntityKind = "ClinicalLog"
	KindSLE              EntityKind = "SLE"
)

// KnownEntityKinds lists every kind an EPA mapping may reference.
var KnownEntityKinds = []EntityKind{
	KindReflection, KindPLT, KindSignificantEvent,
	KindLearningNeed, KindClinicalLog, KindSLE,
}

func (k EntityKind) Valid() bool {
	for _, known := range KnownEntityKinds {
		if k == known {
			return true
		}
	}
	return false
}

// EPAMapping associates one portfolio entity with one EPA code. The
// (entity_kind, entity_id, epa_id) triple is unique: tagging an entity with
// the same EPA twice is rejected as a duplicate.
type EPAMapping struct {
	ID         uint64
	EPAID      uint64
	EntityKind EntityKind
	EntityID   uint64
	UserID     uint64
	CreatedAt  time.Time
}
