package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// ReviewRepo mirrors the 'reviews' table shared by ad-hoc ES reports and the
// IRCP/FRCP competence-progression reviews, plus the per-EPA entrustment
// child rows. Section writes are guarded on the section statuses so the
// three-party ordering holds under concurrency.
type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

const reviewColumns = `id, kind, eyd_user_id, es_user_id, period_label,
	es_summary, es_status, eyd_reflection, eyd_status,
	panel_outcome, panel_comments, panel_status, is_locked, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }) (model.Review, error) {
	var r model.Review
	err := row.Scan(&r.ID, &r.Kind, &r.EYDUserID, &r.ESUserID, &r.PeriodLabel,
		&r.ESSummary, &r.ESStatus, &r.EYDReflection, &r.EYDStatus,
		&r.PanelOutcome, &r.PanelComments, &r.PanelStatus, &r.IsLocked,
		&r.CreatedAt, &r.UpdatedAt)
	return r, translateErr(err)
}

func (repo *ReviewRepo) Create(ctx context.Context, r *model.Review) error {
	res, err := repo.DB.ExecContext(ctx,
		`INSERT INTO reviews (kind, eyd_user_id, es_user_id, period_label, es_status, eyd_status, panel_status)
		 VALUES (?,?,?,?,?,?,?)`,
		r.Kind, r.EYDUserID, r.ESUserID, r.PeriodLabel,
		model.SectionNotStarted, model.SectionNotStarted, model.SectionNotStarted)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	r.ESStatus, r.EYDStatus, r.PanelStatus = model.SectionNotStarted, model.SectionNotStarted, model.SectionNotStarted
	return nil
}

func (repo *ReviewRepo) GetByID(ctx context.Context, id uint64) (model.Review, error) {
	return scanReview(repo.DB.QueryRowContext(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE id=? LIMIT 1", id))
}

func (repo *ReviewRepo) ListByOwner(ctx context.Context, eydUserID uint64, kind *model.ReviewKind) ([]model.Review, error) {
	q := "SELECT " + reviewColumns + " FROM reviews WHERE eyd_user_id=?"
	args := []any{eydUserID}
	if kind != nil {
		q += " AND kind=?"
		args = append(args, *kind)
	}
	q += " ORDER BY created_at DESC"
	rows, err := repo.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveESSection persists the ES section (draft or completed).
func (repo *ReviewRepo) SaveESSection(ctx context.Context, r *model.Review) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE reviews SET es_summary=?, es_status=?, updated_at=? WHERE id=? AND is_locked=0 AND es_status<>?",
		r.ESSummary, r.ESStatus, r.UpdatedAt, r.ID, model.SectionCompleted))
}

// SaveEYDSection persists the trainee section; the guard re-checks that the
// ES section is complete. Ad-hoc reviews lock here.
func (repo *ReviewRepo) SaveEYDSection(ctx context.Context, r *model.Review) error {
	return guarded(repo.DB.ExecContext(ctx,
		`UPDATE reviews SET eyd_reflection=?, eyd_status=?, is_locked=?, updated_at=?
		 WHERE id=? AND is_locked=0 AND es_status=? AND eyd_status<>?`,
		r.EYDReflection, r.EYDStatus, r.IsLocked, r.UpdatedAt,
		r.ID, model.SectionCompleted, model.SectionCompleted))
}

// SavePanelSection persists the panel outcome, which always locks.
func (repo *ReviewRepo) SavePanelSection(ctx context.Context, r *model.Review) error {
	return guarded(repo.DB.ExecContext(ctx,
		`UPDATE reviews SET panel_outcome=?, panel_comments=?, panel_status=?, is_locked=1, updated_at=?
		 WHERE id=? AND is_locked=0 AND eyd_status=? AND panel_status<>?`,
		r.PanelOutcome, r.PanelComments, r.PanelStatus, r.UpdatedAt,
		r.ID, model.SectionCompleted, model.SectionCompleted))
}

// AddAssessment attaches a per-EPA entrustment rating to a review. The
// unique (review_id, epa_id) index rejects a second rating for the same EPA.
func (repo *ReviewRepo) AddAssessment(ctx context.Context, a *model.EPAAssessment) error {
	res, err := repo.DB.ExecContext(ctx,
		"INSERT INTO review_epa_assessments (review_id, epa_id, level, justification) VALUES (?,?,?,?)",
		a.ReviewID, a.EPAID, a.Level, a.Justification)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (repo *ReviewRepo) ListAssessments(ctx context.Context, reviewID uint64) ([]model.EPAAssessment, error) {
	rows, err := repo.DB.QueryContext(ctx,
		`SELECT a.id, a.review_id, a.epa_id, a.level, a.justification, a.created_at
		 FROM review_epa_assessments a JOIN epas e ON e.id = a.epa_id
		 WHERE a.review_id=? ORDER BY e.code`, reviewID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.EPAAssessment
	for rows.Next() {
		var a model.EPAAssessment
		if err := rows.Scan(&a.ID, &a.ReviewID, &a.EPAID, &a.Level, &a.Justification, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
