package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// InductionRepo mirrors the 'es_inductions' table. The unique eyd_user_id
// index enforces one induction per trainee.
type InductionRepo struct{ DB *sql.DB }

func NewInductionRepo(db *sql.DB) *InductionRepo { return &InductionRepo{DB: db} }

const inductionColumns = "id, eyd_user_id, es_user_id, meeting_date, notes, is_completed, completed_at, created_at, updated_at"

func scanInduction(row interface{ Scan(...any) error }) (model.ESInduction, error) {
	var (
		i           model.ESInduction
		completedAt sql.NullTime
	)
	err := row.Scan(&i.ID, &i.EYDUserID, &i.ESUserID, &i.MeetingDate, &i.Notes,
		&i.IsCompleted, &completedAt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return model.ESInduction{}, translateErr(err)
	}
	if completedAt.Valid {
		i.CompletedAt = &completedAt.Time
	}
	return i, nil
}

// Create inserts the induction; a second one for the same EYD trips the
// unique index and surfaces as a duplicate.
func (repo *InductionRepo) Create(ctx context.Context, i *model.ESInduction) error {
	res, err := repo.DB.ExecContext(ctx,
		"INSERT INTO es_inductions (eyd_user_id, es_user_id, meeting_date, notes) VALUES (?,?,?,?)",
		i.EYDUserID, i.ESUserID, i.MeetingDate, i.Notes)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	i.ID = uint64(id)
	return nil
}

func (repo *InductionRepo) GetByID(ctx context.Context, id uint64) (model.ESInduction, error) {
	return scanInduction(repo.DB.QueryRowContext(ctx,
		"SELECT "+inductionColumns+" FROM es_inductions WHERE id=? LIMIT 1", id))
}

func (repo *InductionRepo) GetByEYD(ctx context.Context, eydUserID uint64) (model.ESInduction, error) {
	return scanInduction(repo.DB.QueryRowContext(ctx,
		"SELECT "+inductionColumns+" FROM es_inductions WHERE eyd_user_id=? LIMIT 1", eydUserID))
}

func (repo *InductionRepo) SaveDraft(ctx context.Context, i *model.ESInduction) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE es_inductions SET meeting_date=?, notes=?, updated_at=? WHERE id=? AND is_completed=0",
		i.MeetingDate, i.Notes, i.UpdatedAt, i.ID))
}

func (repo *InductionRepo) SaveComplete(ctx context.Context, i *model.ESInduction) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE es_inductions SET is_completed=1, completed_at=?, updated_at=? WHERE id=? AND is_completed=0",
		i.CompletedAt, i.UpdatedAt, i.ID))
}

// SaveReopen clears the completion flag and timestamp.
func (repo *InductionRepo) SaveReopen(ctx context.Context, i *model.ESInduction) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE es_inductions SET is_completed=0, completed_at=NULL, updated_at=? WHERE id=? AND is_completed=1",
		i.UpdatedAt, i.ID))
}
