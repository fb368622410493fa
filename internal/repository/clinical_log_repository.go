package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// ClinicalLogRepo mirrors the 'clinical_logs' table: one row per trainee per
// calendar month, enforced by a unique (eyd_user_id, year, month) index.
type ClinicalLogRepo struct{ DB *sql.DB }

func NewClinicalLogRepo(db *sql.DB) *ClinicalLogRepo { return &ClinicalLogRepo{DB: db} }

const clinicalLogColumns = "id, eyd_user_id, year, month, patients_seen, procedures_done, referrals_made, notes, created_at, updated_at"

func scanClinicalLog(row interface{ Scan(...any) error }) (model.ClinicalLog, error) {
	var l model.ClinicalLog
	err := row.Scan(&l.ID, &l.EYDUserID, &l.Year, &l.Month, &l.PatientsSeen,
		&l.ProceduresDone, &l.ReferralsMade, &l.Notes, &l.CreatedAt, &l.UpdatedAt)
	return l, translateErr(err)
}

func (repo *ClinicalLogRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.ClinicalLog) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO clinical_logs (eyd_user_id, year, month, patients_seen, procedures_done, referrals_made, notes) VALUES (?,?,?,?,?,?,?)",
		l.EYDUserID, l.Year, l.Month, l.PatientsSeen, l.ProceduresDone, l.ReferralsMade, l.Notes)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	return nil
}

func (repo *ClinicalLogRepo) GetByID(ctx context.Context, id uint64) (model.ClinicalLog, error) {
	return scanClinicalLog(repo.DB.QueryRowContext(ctx,
		"SELECT "+clinicalLogColumns+" FROM clinical_logs WHERE id=? LIMIT 1", id))
}

func (repo *ClinicalLogRepo) ListByOwner(ctx context.Context, eydUserID uint64) ([]model.ClinicalLog, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+clinicalLogColumns+" FROM clinical_logs WHERE eyd_user_id=? ORDER BY year DESC, month DESC", eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ClinicalLog
	for rows.Next() {
		l, err := scanClinicalLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveTx rewrites the tallies inside the caller's transaction so they stay
// in step with the mapping swap.
func (repo *ClinicalLogRepo) SaveTx(ctx context.Context, tx *sql.Tx, l *model.ClinicalLog) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE clinical_logs SET patients_seen=?, procedures_done=?, referrals_made=?, notes=?, updated_at=? WHERE id=?",
		l.PatientsSeen, l.ProceduresDone, l.ReferralsMade, l.Notes, l.UpdatedAt, l.ID)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
