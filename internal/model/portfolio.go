package model

import "time"

// Reflection is an EYD-authored journal entry. It starts as a draft the
// owner may edit freely; locking is a one-way door after which every write
// returns ErrStateConflict.
type Reflection struct {
	ID             uint64
	EYDUserID      uint64
	Title          string
	Content        string
	ReflectionDate time.Time
	IsLocked       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Update replaces the editable fields while the reflection is unlocked.
func (r *Reflection) Update(title, content string, date time.Time, now time.Time) error {
	if r.IsLocked {
		return ErrStateConflict
	}
	r.Title, r.Content, r.ReflectionDate = title, content, date
	r.UpdatedAt = now
	return nil
}

// Lock finalizes the reflection. Locking an already locked entry is a state
// conflict, not a no-op, so callers can surface "already finalized".
func (r *Reflection) Lock(now time.Time) error {
	if r.IsLocked {
		return ErrStateConflict
	}
	r.IsLocked = true
	r.UpdatedAt = now
	return nil
}

// ProtectedLearningTime records a study session. Creation requires at least
// two EPA codes; the row and its mappings are written in one transaction so
// a failed EPA validation leaves nothing behind.
type ProtectedLearningTime struct {
	ID            uint64
	EYDUserID     uint64
	Title         string
	Description   string
	ActivityDate  time.Time
	DurationHours float64
	IsLocked      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (p *ProtectedLearningTime) Update(title, description string, date time.Time, hours float64, now time.Time) error {
	if p.IsLocked {
		return ErrStateConflict
	}
	p.Title, p.Description, p.ActivityDate, p.DurationHours = title, description, date, hours
	p.UpdatedAt = now
	return nil
}

func (p *ProtectedLearningTime) Lock(now time.Time) error {
	if p.IsLocked {
		return ErrStateConflict
	}
	p.IsLocked = true
	p.UpdatedAt = now
	return nil
}

// SignificantEvent carries two independent, ordered sign-offs. The ES signs
// first; the TPD sign-off is rejected until then and is what locks the row.
type SignificantEvent struct {
	ID               uint64
	EYDUserID        uint64
	Title            string
	Description      string
	EventDate        time.Time
	ESSignedOff      bool
	ESSignedOffBy    *uint64
	ESSignedOffAt    *time.Time
	TPDSignedOff     bool
	TPDSignedOffBy   *uint64
	TPDSignedOffAt   *time.Time
	IsLocked         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (s *SignificantEvent) Update(title, description string, date time.Time, now time.Time) error {
	if s.IsLocked || s.ESSignedOff {
		return ErrStateConflict
	}
	s.Title, s.Description, s.EventDate = title, description, date
	s.UpdatedAt = now
	return nil
}

// SignOffES records the supervisor sign-off. It does not lock the event.
func (s *SignificantEvent) SignOffES(byUserID uint64, now time.Time) error {
	if s.IsLocked || s.ESSignedOff {
		return ErrStateConflict
	}
	s.ESSignedOff = true
	s.ESSignedOffBy = &byUserID
	s.ESSignedOffAt = &now
	s.UpdatedAt = now
	return nil
}

// SignOffTPD records the programme director sign-off and locks the event.
// It is only accepted after the ES sign-off; this ordering is enforced here,
// at the point of mutation, not only in the permission check.
func (s *SignificantEvent) SignOffTPD(byUserID uint64, now time.Time) error {
	if !s.ESSignedOff {
		return ErrStateConflict
	}
	if s.IsLocked || s.TPDSignedOff {
		return ErrStateConflict
	}
	s.TPDSignedOff = true
	s.TPDSignedOffBy = &byUserID
	s.TPDSignedOffAt = &now
	s.IsLocked = true
	s.UpdatedAt = now
	return nil
}

// LearningNeedStatus is the learning-need workflow state stored on the row.
type LearningNeedStatus string

const (
	LearningNeedDraft     LearningNeedStatus = "DRAFT"
	LearningNeedSubmitted LearningNeedStatus = "SUBMITTED"
	LearningNeedCompleted LearningNeedStatus = "COMPLETED"
)

// LearningNeed may oscillate between draft and submitted until a supervisor
// or programme director completes it. The EYD can never complete their own
// need; that restriction lives in the authorization resolver.
type LearningNeed struct {
	ID                uint64
	EYDUserID         uint64
	Title             string
	Description       string
	DateIdentified    time.Time
	Status            LearningNeedStatus
	SubmittedAt       *time.Time
	CompletedByUserID *uint64
	CompletedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (l *LearningNeed) Update(title, description string, identified time.Time, now time.Time) error {
	if l.Status != LearningNeedDraft {
		return ErrStateConflict
	}
	l.Title, l.Description, l.DateIdentified = title, description, identified
	l.UpdatedAt = now
	return nil
}

// Submit moves a draft to submitted and stamps SubmittedAt.
func (l *LearningNeed) Submit(now time.Time) error {
	if l.Status != LearningNeedDraft {
		return ErrStateConflict
	}
	l.Status = LearningNeedSubmitted
	l.SubmittedAt = &now
	l.UpdatedAt = now
	return nil
}

// Revert returns a submitted need to draft and clears SubmittedAt.
func (l *LearningNeed) Revert(now time.Time) error {
	if l.Status != LearningNeedSubmitted {
		return ErrStateConflict
	}
	l.Status = LearningNeedDraft
	l.SubmittedAt = nil
	l.UpdatedAt = now
	return nil
}

// Complete finalizes a submitted need, recording who completed it and when.
func (l *LearningNeed) Complete(byUserID uint64, now time.Time) error {
	if l.Status != LearningNeedSubmitted {
		return ErrStateConflict
	}
	l.Status = LearningNeedCompleted
	l.CompletedByUserID = &byUserID
	l.CompletedAt = &now
	l.UpdatedAt = now
	return nil
}
