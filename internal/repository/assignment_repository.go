package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// AssignmentRepo manages the ES-EYD assignment registry and the dormant
// temporary-access grants. Assignment rows are soft-deactivated, never
// hard-deleted.
type AssignmentRepo struct{ DB *sql.DB }

func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{DB: db} }

// Create inserts an assignment after rejecting a duplicate active pair. The
// uniqueness check happens at write time (there is no schema constraint,
// since deactivated duplicates are legitimate history).
func (r *AssignmentRepo) Create(ctx context.Context, a *model.ESAssignment) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	err = tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM es_assignments WHERE es_user_id=? AND eyd_user_id=? AND is_active=1 FOR UPDATE)",
		a.ESUserID, a.EYDUserID).Scan(&exists)
	if err != nil {
		return translateErr(err)
	}
	if exists {
		return model.ErrDuplicate
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO es_assignments (es_user_id, eyd_user_id, assigned_date, is_active) VALUES (?,?,?,1)",
		a.ESUserID, a.EYDUserID, a.AssignedDate)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	a.IsActive = true
	return tx.Commit()
}

func (r *AssignmentRepo) GetByID(ctx context.Context, id uint64) (model.ESAssignment, error) {
	var a model.ESAssignment
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, eyd_user_id, es_user_id, assigned_date, is_active FROM es_assignments WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.EYDUserID, &a.ESUserID, &a.AssignedDate, &a.IsActive)
	return a, translateErr(err)
}

// Deactivate soft-deletes an active assignment. Deactivating an already
// inactive row is a state conflict.
func (r *AssignmentRepo) Deactivate(ctx context.Context, id uint64) error {
	var exists bool
	if err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM es_assignments WHERE id=?)", id).Scan(&exists); err != nil {
		return translateErr(err)
	}
	if !exists {
		return model.ErrNotFound
	}
	return guarded(r.DB.ExecContext(ctx,
		"UPDATE es_assignments SET is_active=0 WHERE id=? AND is_active=1", id))
}

// HasActive reports whether an active link exists from the ES to the EYD.
func (r *AssignmentRepo) HasActive(ctx context.Context, esUserID, eydUserID uint64) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM es_assignments WHERE es_user_id=? AND eyd_user_id=? AND is_active=1)",
		esUserID, eydUserID).Scan(&exists)
	return exists, translateErr(err)
}

func (r *AssignmentRepo) listWhere(ctx context.Context, where string, arg uint64) ([]model.ESAssignment, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, eyd_user_id, es_user_id, assigned_date, is_active FROM es_assignments WHERE "+where+" ORDER BY assigned_date DESC", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ESAssignment
	for rows.Next() {
		var a model.ESAssignment
		if err := rows.Scan(&a.ID, &a.EYDUserID, &a.ESUserID, &a.AssignedDate, &a.IsActive); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepo) ListByES(ctx context.Context, esUserID uint64) ([]model.ESAssignment, error) {
	return r.listWhere(ctx, "es_user_id=?", esUserID)
}

func (r *AssignmentRepo) ListByEYD(ctx context.Context, eydUserID uint64) ([]model.ESAssignment, error) {
	return r.listWhere(ctx, "eyd_user_id=?", eydUserID)
}

// --- temporary access (persisted, not consulted by authorization) ---

const tempAccessColumns = "id, requesting_user_id, target_eyd_user_id, reason, requested_date, approved_date, expiry_date, is_approved, is_active, approved_by_user_id"

func scanTempAccess(row interface{ Scan(...any) error }) (model.TemporaryAccess, error) {
	var (
		t          model.TemporaryAccess
		approved   sql.NullTime
		expiry     sql.NullTime
		approvedBy sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.RequestingUserID, &t.TargetEYDUserID, &t.Reason,
		&t.RequestedDate, &approved, &expiry, &t.IsApproved, &t.IsActive, &approvedBy)
	if err != nil {
		return model.TemporaryAccess{}, translateErr(err)
	}
	if approved.Valid {
		t.ApprovedDate = &approved.Time
	}
	if expiry.Valid {
		t.ExpiryDate = &expiry.Time
	}
	if approvedBy.Valid {
		v := uint64(approvedBy.Int64)
		t.ApprovedByUserID = &v
	}
	return t, nil
}

func (r *AssignmentRepo) CreateTempAccess(ctx context.Context, t *model.TemporaryAccess) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO temporary_access (requesting_user_id, target_eyd_user_id, reason, requested_date, is_approved, is_active) VALUES (?,?,?,?,0,1)",
		t.RequestingUserID, t.TargetEYDUserID, t.Reason, t.RequestedDate)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	t.IsActive = true
	return nil
}

func (r *AssignmentRepo) GetTempAccess(ctx context.Context, id uint64) (model.TemporaryAccess, error) {
	return scanTempAccess(r.DB.QueryRowContext(ctx,
		"SELECT "+tempAccessColumns+" FROM temporary_access WHERE id=? LIMIT 1", id))
}

// SaveTempAccessApproval persists an approval made through the model
// transition, guarded against concurrent approvals.
func (r *AssignmentRepo) SaveTempAccessApproval(ctx context.Context, t *model.TemporaryAccess) error {
	return guarded(r.DB.ExecContext(ctx,
		"UPDATE temporary_access SET is_approved=1, approved_date=?, expiry_date=?, approved_by_user_id=? WHERE id=? AND is_approved=0 AND is_active=1",
		t.ApprovedDate, t.ExpiryDate, t.ApprovedByUserID, t.ID))
}

func (r *AssignmentRepo) ListTempAccessByRequester(ctx context.Context, userID uint64) ([]model.TemporaryAccess, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+tempAccessColumns+" FROM temporary_access WHERE requesting_user_id=? ORDER BY requested_date DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TemporaryAccess
	for rows.Next() {
		t, err := scanTempAccess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
