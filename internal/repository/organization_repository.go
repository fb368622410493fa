package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// OrgRepo covers the areas and schemes reference tables. Areas have no
// delete path at all.
type OrgRepo struct{ DB *sql.DB }

func NewOrgRepo(db *sql.DB) *OrgRepo { return &OrgRepo{DB: db} }

func (r *OrgRepo) CreateArea(ctx context.Context, a *model.Area) error {
	res, err := r.DB.ExecContext(ctx, "INSERT INTO areas (name) VALUES (?)", a.Name)
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

func (r *OrgRepo) GetArea(ctx context.Context, id uint64) (model.Area, error) {
	var a model.Area
	err := r.DB.QueryRowContext(ctx, "SELECT id,name FROM areas WHERE id=? LIMIT 1", id).
		Scan(&a.ID, &a.Name)
	return a, translateErr(err)
}

func (r *OrgRepo) ListAreas(ctx context.Context) ([]model.Area, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id,name FROM areas ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var areas []model.Area
	for rows.Next() {
		var a model.Area
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, err
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (r *OrgRepo) RenameArea(ctx context.Context, id uint64, name string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE areas SET name=? WHERE id=?", name, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *OrgRepo) CreateScheme(ctx context.Context, s *model.Scheme) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO schemes (name, area_id) VALUES (?,?)", s.Name, s.AreaID)
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

func (r *OrgRepo) GetScheme(ctx context.Context, id uint64) (model.Scheme, error) {
	var s model.Scheme
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,area_id FROM schemes WHERE id=? LIMIT 1", id).
		Scan(&s.ID, &s.Name, &s.AreaID)
	return s, translateErr(err)
}

// SchemeArea resolves a scheme to its area id, for the authorization chain.
func (r *OrgRepo) SchemeArea(ctx context.Context, schemeID uint64) (uint64, error) {
	var areaID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT area_id FROM schemes WHERE id=? LIMIT 1", schemeID).Scan(&areaID)
	return areaID, translateErr(err)
}

func (r *OrgRepo) ListSchemes(ctx context.Context, areaID *uint64) ([]model.Scheme, error) {
	q := "SELECT id,name,area_id FROM schemes"
	var args []any
	if areaID != nil {
		q += " WHERE area_id=?"
		args = append(args, *areaID)
	}
	q += " ORDER BY name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var schemes []model.Scheme
	for rows.Next() {
		var s model.Scheme
		if err := rows.Scan(&s.ID, &s.Name, &s.AreaID); err != nil {
			return nil, err
		}
		schemes = append(schemes, s)
	}
	return schemes, rows.Err()
}

// DeleteScheme removes a scheme in one transaction: members lose their
// scheme placement, the active assignments of the scheme's EYDs are
// deactivated, then the scheme row goes.
func (r *OrgRepo) DeleteScheme(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE es_assignments SET is_active=0
		 WHERE is_active=1 AND eyd_user_id IN (SELECT id FROM users WHERE scheme_id=?)`, id); err != nil {
		return translateErr(err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET scheme_id=NULL WHERE scheme_id=?", id); err != nil {
		return translateErr(err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM schemes WHERE id=?", id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return tx.Commit()
}
