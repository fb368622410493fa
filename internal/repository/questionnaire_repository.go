package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// QuestionnaireRepo covers PSQ/MSF questionnaires and their anonymous,
// append-only response tables.
type QuestionnaireRepo struct{ DB *sql.DB }

func NewQuestionnaireRepo(db *sql.DB) *QuestionnaireRepo { return &QuestionnaireRepo{DB: db} }

const questionnaireColumns = "id, kind, eyd_user_id, title, unique_code, is_active, created_at"

func scanQuestionnaire(row interface{ Scan(...any) error }) (model.Questionnaire, error) {
	var q model.Questionnaire
	err := row.Scan(&q.ID, &q.Kind, &q.EYDUserID, &q.Title, &q.UniqueCode, &q.IsActive, &q.CreatedAt)
	return q, translateErr(err)
}

func (repo *QuestionnaireRepo) Create(ctx context.Context, q *model.Questionnaire) error {
	res, err := repo.DB.ExecContext(ctx,
		"INSERT INTO questionnaires (kind, eyd_user_id, title, unique_code, is_active) VALUES (?,?,?,?,1)",
		q.Kind, q.EYDUserID, q.Title, q.UniqueCode)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = uint64(id)
	q.IsActive = true
	return nil
}

func (repo *QuestionnaireRepo) GetByID(ctx context.Context, id uint64) (model.Questionnaire, error) {
	return scanQuestionnaire(repo.DB.QueryRowContext(ctx,
		"SELECT "+questionnaireColumns+" FROM questionnaires WHERE id=? LIMIT 1", id))
}

// GetByCode resolves the public unique code for one questionnaire kind.
func (repo *QuestionnaireRepo) GetByCode(ctx context.Context, kind model.QuestionnaireKind, code string) (model.Questionnaire, error) {
	return scanQuestionnaire(repo.DB.QueryRowContext(ctx,
		"SELECT "+questionnaireColumns+" FROM questionnaires WHERE kind=? AND unique_code=? LIMIT 1", kind, code))
}

func (repo *QuestionnaireRepo) ListByOwner(ctx context.Context, kind model.QuestionnaireKind, eydUserID uint64) ([]model.Questionnaire, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+questionnaireColumns+" FROM questionnaires WHERE kind=? AND eyd_user_id=? ORDER BY created_at DESC",
		kind, eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Close deactivates a questionnaire; closing an inactive one conflicts.
func (repo *QuestionnaireRepo) Close(ctx context.Context, id uint64) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE questionnaires SET is_active=0 WHERE id=? AND is_active=1", id))
}

// AddPSQResponse appends one anonymous patient response. No update or
// delete path exists for responses.
func (repo *QuestionnaireRepo) AddPSQResponse(ctx context.Context, r *model.PSQResponse) error {
	res, err := repo.DB.ExecContext(ctx,
		`INSERT INTO psq_responses (questionnaire_id, put_at_ease, listened_carefully, explained_clearly,
			involved_in_decisions, treated_with_respect, overall_satisfaction, what_went_well, could_improve)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		r.QuestionnaireID, r.PutAtEase, r.ListenedCarefully, r.ExplainedClearly,
		r.InvolvedInDecisions, r.TreatedWithRespect, r.OverallSatisfaction,
		r.WhatWentWell, r.CouldImprove)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

func (repo *QuestionnaireRepo) AddMSFResponse(ctx context.Context, r *model.MSFResponse) error {
	res, err := repo.DB.ExecContext(ctx,
		`INSERT INTO msf_responses (questionnaire_id, clinical_skills, communication, teamwork,
			professionalism, reliability, overall_impression, strengths, areas_for_development)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		r.QuestionnaireID, r.ClinicalSkills, r.Communication, r.Teamwork,
		r.Professionalism, r.Reliability, r.OverallImpression,
		r.Strengths, r.AreasForDevelopment)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

// ResponseSummary is the aggregate view shown to the questionnaire owner:
// response count plus per-question means keyed by column name.
type ResponseSummary struct {
	ResponseCount int                `json:"response_count"`
	Means         map[string]float64 `json:"means"`
}

func (repo *QuestionnaireRepo) summarize(ctx context.Context, query string, questionnaireID uint64, fields []string) (ResponseSummary, error) {
	s := ResponseSummary{Means: make(map[string]float64, len(fields))}
	dest := make([]any, 0, len(fields)+1)
	dest = append(dest, &s.ResponseCount)
	means := make([]sql.NullFloat64, len(fields))
	for i := range means {
		dest = append(dest, &means[i])
	}
	if err := repo.DB.QueryRowContext(ctx, query, questionnaireID).Scan(dest...); err != nil {
		return s, translateErr(err)
	}
	for i, f := range fields {
		if means[i].Valid {
			s.Means[f] = means[i].Float64
		}
	}
	return s, nil
}

func (repo *QuestionnaireRepo) PSQSummary(ctx context.Context, questionnaireID uint64) (ResponseSummary, error) {
	return repo.summarize(ctx,
		`SELECT COUNT(*), AVG(put_at_ease), AVG(listened_carefully), AVG(explained_clearly),
			AVG(involved_in_decisions), AVG(treated_with_respect), AVG(overall_satisfaction)
		 FROM psq_responses WHERE questionnaire_id=?`,
		questionnaireID,
		[]string{"put_at_ease", "listened_carefully", "explained_clearly",
			"involved_in_decisions", "treated_with_respect", "overall_satisfaction"})
}

func (repo *QuestionnaireRepo) MSFSummary(ctx context.Context, questionnaireID uint64) (ResponseSummary, error) {
	return repo.summarize(ctx,
		`SELECT COUNT(*), AVG(clinical_skills), AVG(communication), AVG(teamwork),
			AVG(professionalism), AVG(reliability), AVG(overall_impression)
		 FROM msf_responses WHERE questionnaire_id=?`,
		questionnaireID,
		[]string{"clinical_skills", "communication", "teamwork",
			"professionalism", "reliability", "overall_impression"})
}
