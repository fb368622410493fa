package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// PLTRepo mirrors the 'protected_learning_times' table. Creation always
// happens through CreateTx so the minimum-two-EPA rule can fail the whole
// transaction without leaving an orphan row.
type PLTRepo struct{ DB *sql.DB }

func NewPLTRepo(db *sql.DB) *PLTRepo { return &PLTRepo{DB: db} }

const pltColumns = "id, eyd_user_id, title, description, activity_date, duration_hours, is_locked, created_at, updated_at"

func scanPLT(row interface{ Scan(...any) error }) (model.ProtectedLearningTime, error) {
	var p model.ProtectedLearningTime
	err := row.Scan(&p.ID, &p.EYDUserID, &p.Title, &p.Description, &p.ActivityDate,
		&p.DurationHours, &p.IsLocked, &p.CreatedAt, &p.UpdatedAt)
	return p, translateErr(err)
}

func (repo *PLTRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.ProtectedLearningTime) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO protected_learning_times (eyd_user_id, title, description, activity_date, duration_hours, is_locked) VALUES (?,?,?,?,?,0)",
		p.EYDUserID, p.Title, p.Description, p.ActivityDate, p.DurationHours)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (repo *PLTRepo) GetByID(ctx context.Context, id uint64) (model.ProtectedLearningTime, error) {
	return scanPLT(repo.DB.QueryRowContext(ctx,
		"SELECT "+pltColumns+" FROM protected_learning_times WHERE id=? LIMIT 1", id))
}

func (repo *PLTRepo) ListByOwner(ctx context.Context, eydUserID uint64) ([]model.ProtectedLearningTime, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+pltColumns+" FROM protected_learning_times WHERE eyd_user_id=? ORDER BY activity_date DESC", eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ProtectedLearningTime
	for rows.Next() {
		p, err := scanPLT(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveDraftTx persists an edit inside the caller's transaction so the field
// update and the mapping swap commit or roll back together.
func (repo *PLTRepo) SaveDraftTx(ctx context.Context, tx *sql.Tx, p *model.ProtectedLearningTime) error {
	return guarded(tx.ExecContext(ctx,
		"UPDATE protected_learning_times SET title=?, description=?, activity_date=?, duration_hours=?, updated_at=? WHERE id=? AND is_locked=0",
		p.Title, p.Description, p.ActivityDate, p.DurationHours, p.UpdatedAt, p.ID))
}

func (repo *PLTRepo) Lock(ctx context.Context, p *model.ProtectedLearningTime) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE protected_learning_times SET is_locked=1, updated_at=? WHERE id=? AND is_locked=0",
		p.UpdatedAt, p.ID))
}
