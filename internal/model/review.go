package model

import "time"

// ESInduction is the single induction record an educational supervisor
// writes for each trainee (unique per EYD). Unlike locked entities the
// completion flag can be cleared again, which also clears the timestamp.
type ESInduction struct {
	ID          uint64
	EYDUserID   uint64
	ESUserID    uint64
	MeetingDate time.Time
	Notes       string
	IsCompleted bool
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (i *ESInduction) Update(meetingDate time.Time, notes string, now time.Time) error {
	if i.IsCompleted {
		return ErrStateConflict
	}
	i.MeetingDate, i.Notes = meetingDate, notes
	i.UpdatedAt = now
	return nil
}

func (i *ESInduction) Complete(now time.Time) error {
	if i.IsCompleted {
		return ErrStateConflict
	}
	i.IsCompleted = true
	i.CompletedAt = &now
	i.UpdatedAt = now
	return nil
}

// Reopen clears the completion flag and timestamp.
func (i *ESInduction) Reopen(now time.Time) error {
	if !i.IsCompleted {
		return ErrStateConflict
	}
	i.IsCompleted = false
	i.CompletedAt = nil
	i.UpdatedAt = now
	return nil
}

// ClinicalLog is a monthly clinical-activity tally. One row per EYD per
// calendar month; the duplicate is caught by a unique index and surfaced as
// a field validation error.
type ClinicalLog struct {
	ID              uint64
	EYDUserID       uint64
	Year            int
	Month           int
	PatientsSeen    int
	ProceduresDone  int
	ReferralsMade   int
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SectionStatus is the per-party progress of a review section, persisted on
// the review row itself rather than in any session-scoped state.
type SectionStatus string

const (
	SectionNotStarted SectionStatus = "NOT_STARTED"
	SectionInProgress SectionStatus = "IN_PROGRESS"
	SectionCompleted  SectionStatus = "COMPLETED"
)

// ReviewKind distinguishes the three multi-party review workflows. Ad-hoc
// reports stop after the EYD section; IRCP and FRCP add a panel stage.
type ReviewKind string

const (
	ReviewAdHoc ReviewKind = "ADHOC"
	ReviewIRCP  ReviewKind = "IRCP"
	ReviewFRCP  ReviewKind = "FRCP"
)

func (k ReviewKind) Valid() bool {
	return k == ReviewAdHoc || k == ReviewIRCP || k == ReviewFRCP
}

// HasPanel reports whether the kind carries a panel stage.
func (k ReviewKind) HasPanel() bool { return k == ReviewIRCP || k == ReviewFRCP }

// Review is the shared shape of the ad-hoc ES report and the IRCP/FRCP
// competence-progression reviews: an ES section, then an EYD reflection,
// then (for IRCP/FRCP) a panel outcome which locks the review.
type Review struct {
	ID            uint64
	Kind          ReviewKind
	EYDUserID     uint64
	ESUserID      uint64
	PeriodLabel   string
	ESSummary     string
	ESStatus      SectionStatus
	EYDReflection string
	EYDStatus     SectionStatus
	PanelOutcome  string
	PanelComments string
	PanelStatus   SectionStatus
	IsLocked      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SaveESSection stores an ES draft, moving the section to in-progress.
func (r *Review) SaveESSection(summary string, now time.Time) error {
	if r.IsLocked || r.ESStatus == SectionCompleted {
		return ErrStateConflict
	}
	r.ESSummary = summary
	r.ESStatus = SectionInProgress
	r.UpdatedAt = now
	return nil
}

// CompleteESSection finalizes the ES section.
func (r *Review) CompleteESSection(summary string, now time.Time) error {
	if r.IsLocked || r.ESStatus == SectionCompleted {
		return ErrStateConflict
	}
	r.ESSummary = summary
	r.ESStatus = SectionCompleted
	r.UpdatedAt = now
	return nil
}

// SaveEYDSection stores the trainee's draft reflection. The EYD section
// opens only once the ES section is complete.
func (r *Review) SaveEYDSection(reflection string, now time.Time) error {
	if r.IsLocked || r.ESStatus != SectionCompleted || r.EYDStatus == SectionCompleted {
		return ErrStateConflict
	}
	r.EYDReflection = reflection
	r.EYDStatus = SectionInProgress
	r.UpdatedAt = now
	return nil
}

// CompleteEYDSection finalizes the trainee's reflection. For ad-hoc reports
// this is the terminal step and locks the review.
func (r *Review) CompleteEYDSection(reflection string, now time.Time) error {
	if r.IsLocked || r.ESStatus != SectionCompleted || r.EYDStatus == SectionCompleted {
		return ErrStateConflict
	}
	r.EYDReflection = reflection
	r.EYDStatus = SectionCompleted
	if !r.Kind.HasPanel() {
		r.IsLocked = true
	}
	r.UpdatedAt = now
	return nil
}

// CompletePanelSection records the panel outcome and locks the review. Only
// IRCP and FRCP reviews carry a panel stage, and it opens only after the
// EYD section is complete.
func (r *Review) CompletePanelSection(outcome, comments string, now time.Time) error {
	if !r.Kind.HasPanel() {
		return ErrStateConflict
	}
	if r.IsLocked || r.EYDStatus != SectionCompleted || r.PanelStatus == SectionCompleted {
		return ErrStateConflict
	}
	r.PanelOutcome = outcome
	r.PanelComments = comments
	r.PanelStatus = SectionCompleted
	r.IsLocked = true
	r.UpdatedAt = now
	return nil
}

// EPAAssessment is a per-EPA entrustment rating attached to an IRCP or FRCP
// review: a 1-5 level with a written justification.
type EPAAssessment struct {
	ID            uint64
	ReviewID      uint64
	EPAID         uint64
	Level         int
	Justification string
	CreatedAt     time.Time
}

// ValidLevel reports whether the entrustment level is on the 1-5 scale.
func (a *EPAAssessment) ValidLevel() bool { return a.Level >= 1 && a.Level <= 5 }
