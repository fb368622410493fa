package model

import "time"

// QuestionnaireKind distinguishes patient-satisfaction (PSQ) from
// multi-source feedback (MSF) questionnaires. Both share the same
// anonymous-code submission flow.
type QuestionnaireKind string

const (
	QuestionnairePSQ QuestionnaireKind = "PSQ"
	QuestionnaireMSF QuestionnaireKind = "MSF"
)

func (k QuestionnaireKind) Valid() bool {
	return k == QuestionnairePSQ || k == QuestionnaireMSF
}

// Questionnaire is owned by the trainee being rated and is reached
// externally through an opaque UniqueCode embedded in a URL and QR code.
// Closing sets IsActive false, after which submissions are refused.
type Questionnaire struct {
	ID        uint64
	Kind      QuestionnaireKind
	EYDUserID uint64
	Title     string
	UniqueCode string
	IsActive  bool
	CreatedAt time.Time
}

// Close deactivates the questionnaire. Closing twice is a state conflict.
func (q *Questionnaire) Close() error {
	if !q.IsActive {
		return ErrStateConflict
	}
	q.IsActive = false
	return nil
}

// PSQResponse is one anonymous patient submission: six 1-5 Likert scores
// and two free-text comments. Responses are append-only; no respondent
// identity is stored and no update or delete is exposed.
type PSQResponse struct {
	ID                  uint64
	QuestionnaireID     uint64
	PutAtEase           int
	ListenedCarefully   int
	ExplainedClearly    int
	InvolvedInDecisions int
	TreatedWithRespect  int
	OverallSatisfaction int
	WhatWentWell        string
	CouldImprove        string
	CreatedAt           time.Time
}

// MSFResponse is one anonymous colleague submission for an MSF round.
type MSFResponse struct {
	ID                  uint64
	QuestionnaireID     uint64
	ClinicalSkills      int
	Communication       int
	Teamwork            int
	Professionalism     int
	Reliability         int
	OverallImpression   int
	Strengths           string
	AreasForDevelopment string
	CreatedAt           time.Time
}
