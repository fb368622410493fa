package model

import "time"

// SLEType enumerates the supervised-learning-event subtypes. MiniCEX, DOPS
// and DOPSSim require exactly one EPA mapping; the rest allow one or two.
type SLEType string

const (
	SLECBD     SLEType = "CBD"
	SLEDOPS    SLEType = "DOPS"
	SLEMiniCEX SLEType = "MiniCEX"
	SLEDOPSSim SLEType = "DOPSSim"
	SLEDtCT    SLEType = "DtCT"
	SLEDENTL   SLEType = "DENTL"
)

// KnownSLETypes lists every accepted SLE subtype.
var KnownSLETypes = []SLEType{SLECBD, SLEDOPS, SLEMiniCEX, SLEDOPSSim, SLEDtCT, SLEDENTL}

func (t SLEType) Valid() bool {
	for _, known := range KnownSLETypes {
		if t == known {
			return true
		}
	}
	return false
}

// SingleEPA reports whether the subtype demands exactly one EPA mapping.
func (t SLEType) SingleEPA() bool {
	return t == SLEMiniCEX || t == SLEDOPS || t == SLEDOPSSim
}

// SLE is a supervised learning event with a four-phase lifecycle: the EYD
// creates it and designates an assessor; the assessor (an internal user or
// an external party reached through a bearer-token URL) records feedback,
// completing the assessment; the EYD then writes reflection notes exactly
// once, which closes the event.
//
// ExternalAccessToken is the sole credential for the external-assessor step,
// so it must be UUID-class random. It is empty for internal assessors.
type SLE struct {
	ID                    uint64
	EYDUserID             uint64
	Type                  SLEType
	Title                 string
	ScheduledDate         time.Time
	AssessorUserID        *uint64
	ExternalAssessorName  string
	ExternalAssessorEmail string
	ExternalAccessToken   string
	BehaviourFeedback     string
	AgreedAction          string
	AssessorPosition      string
	IsAssessmentCompleted bool
	AssessmentCompletedAt *time.Time
	ReflectionNotes       string
	IsReflectionCompleted bool
	ReflectionCompletedAt *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// External reports whether the designated assessor is an external party.
func (s *SLE) External() bool { return s.AssessorUserID == nil }

// Update edits the invitation details while no assessment has been recorded.
func (s *SLE) Update(title string, scheduled time.Time, now time.Time) error {
	if s.IsAssessmentCompleted {
		return ErrStateConflict
	}
	s.Title, s.ScheduledDate = title, scheduled
	s.UpdatedAt = now
	return nil
}

// CompleteAssessment records the assessor's feedback and closes the
// assessment phase. A completed assessment is immutable: re-submission
// returns ErrStateConflict and no field changes.
func (s *SLE) CompleteAssessment(feedback, action, position string, now time.Time) error {
	if s.IsAssessmentCompleted {
		return ErrStateConflict
	}
	s.BehaviourFeedback = feedback
	s.AgreedAction = action
	s.AssessorPosition = position
	s.IsAssessmentCompleted = true
	s.AssessmentCompletedAt = &now
	s.UpdatedAt = now
	return nil
}

// CompleteReflection records the EYD's reflection notes. It is only allowed
// after the assessment phase and only once; the event is terminal after it.
func (s *SLE) CompleteReflection(notes string, now time.Time) error {
	if !s.IsAssessmentCompleted {
		return ErrStateConflict
	}
	if s.IsReflectionCompleted {
		return ErrStateConflict
	}
	s.ReflectionNotes = notes
	s.IsReflectionCompleted = true
	s.ReflectionCompletedAt = &now
	s.UpdatedAt = now
	return nil
}
