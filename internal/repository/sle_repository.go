package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// SLERepo mirrors the 'sles' table. External assessments are looked up by
// bearer token; both assessment and reflection writes are guarded on the
// phase flags.
type SLERepo struct{ DB *sql.DB }

func NewSLERepo(db *sql.DB) *SLERepo { return &SLERepo{DB: db} }

const sleColumns = `id, eyd_user_id, sle_type, title, scheduled_date,
	assessor_user_id, external_assessor_name, external_assessor_email, external_access_token,
	behaviour_feedback, agreed_action, assessor_position,
	is_assessment_completed, assessment_completed_at,
	reflection_notes, is_reflection_completed, reflection_completed_at,
	created_at, updated_at`

func scanSLE(row interface{ Scan(...any) error }) (model.SLE, error) {
	var (
		s            model.SLE
		assessorID   sql.NullInt64
		token        sql.NullString
		assessedAt   sql.NullTime
		reflectedAt  sql.NullTime
	)
	err := row.Scan(&s.ID, &s.EYDUserID, &s.Type, &s.Title, &s.ScheduledDate,
		&assessorID, &s.ExternalAssessorName, &s.ExternalAssessorEmail, &token,
		&s.BehaviourFeedback, &s.AgreedAction, &s.AssessorPosition,
		&s.IsAssessmentCompleted, &assessedAt,
		&s.ReflectionNotes, &s.IsReflectionCompleted, &reflectedAt,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.SLE{}, translateErr(err)
	}
	if assessorID.Valid {
		v := uint64(assessorID.Int64)
		s.AssessorUserID = &v
	}
	if token.Valid {
		s.ExternalAccessToken = token.String
	}
	if assessedAt.Valid {
		s.AssessmentCompletedAt = &assessedAt.Time
	}
	if reflectedAt.Valid {
		s.ReflectionCompletedAt = &reflectedAt.Time
	}
	return s, nil
}

func (repo *SLERepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.SLE) error {
	var token any
	if s.ExternalAccessToken != "" {
		token = s.ExternalAccessToken
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sles (eyd_user_id, sle_type, title, scheduled_date,
			assessor_user_id, external_assessor_name, external_assessor_email, external_access_token)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.EYDUserID, s.Type, s.Title, s.ScheduledDate,
		s.AssessorUserID, s.ExternalAssessorName, s.ExternalAssessorEmail, token)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

func (repo *SLERepo) GetByID(ctx context.Context, id uint64) (model.SLE, error) {
	return scanSLE(repo.DB.QueryRowContext(ctx,
		"SELECT "+sleColumns+" FROM sles WHERE id=? LIMIT 1", id))
}

// GetByToken resolves an external-assessor bearer token. Unknown tokens are
// a plain not-found; the token itself is the access control.
func (repo *SLERepo) GetByToken(ctx context.Context, token string) (model.SLE, error) {
	return scanSLE(repo.DB.QueryRowContext(ctx,
		"SELECT "+sleColumns+" FROM sles WHERE external_access_token=? LIMIT 1", token))
}

func (repo *SLERepo) ListByOwner(ctx context.Context, eydUserID uint64) ([]model.SLE, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+sleColumns+" FROM sles WHERE eyd_user_id=? ORDER BY scheduled_date DESC", eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SLE
	for rows.Next() {
		s, err := scanSLE(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListByAssessor returns events awaiting or completed by an internal
// assessor.
func (repo *SLERepo) ListByAssessor(ctx context.Context, assessorUserID uint64) ([]model.SLE, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+sleColumns+" FROM sles WHERE assessor_user_id=? ORDER BY scheduled_date DESC", assessorUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SLE
	for rows.Next() {
		s, err := scanSLE(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (repo *SLERepo) SaveInvite(ctx context.Context, s *model.SLE) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE sles SET title=?, scheduled_date=?, updated_at=? WHERE id=? AND is_assessment_completed=0",
		s.Title, s.ScheduledDate, s.UpdatedAt, s.ID))
}

func (repo *SLERepo) SaveAssessment(ctx context.Context, s *model.SLE) error {
	return guarded(repo.DB.ExecContext(ctx,
		`UPDATE sles SET behaviour_feedback=?, agreed_action=?, assessor_position=?,
			is_assessment_completed=1, assessment_completed_at=?, updated_at=?
		 WHERE id=? AND is_assessment_completed=0`,
		s.BehaviourFeedback, s.AgreedAction, s.AssessorPosition,
		s.AssessmentCompletedAt, s.UpdatedAt, s.ID))
}

func (repo *SLERepo) SaveReflection(ctx context.Context, s *model.SLE) error {
	return guarded(repo.DB.ExecContext(ctx,
		`UPDATE sles SET reflection_notes=?, is_reflection_completed=1, reflection_completed_at=?, updated_at=?
		 WHERE id=? AND is_assessment_completed=1 AND is_reflection_completed=0`,
		s.ReflectionNotes, s.ReflectionCompletedAt, s.UpdatedAt, s.ID))
}
