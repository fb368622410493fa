package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dentraining/portfolio-api/internal/model"
)

// UserRepo mirrors the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,email,display_name,password_hash,role,area_id,scheme_id,is_active,created_at,updated_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var (
		u        model.User
		areaID   sql.NullInt64
		schemeID sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role,
		&areaID, &schemeID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translateErr(err)
	}
	if areaID.Valid {
		v := uint64(areaID.Int64)
		u.AreaID = &v
	}
	if schemeID.Valid {
		v := uint64(schemeID.Int64)
		u.SchemeID = &v
	}
	return u, nil
}

// Create inserts a user and returns its ID. The caller is expected to have
// run SetPlacement so only the role-appropriate placement column is set.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, display_name, password_hash, role, area_id, scheme_id, is_active) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.DisplayName, u.PasswordHash, u.Role, u.AreaID, u.SchemeID, u.IsActive)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// ListByRole returns active users of a role, optionally narrowed to an area
// (direct placement or via the scheme chain) or a scheme.
func (r *UserRepo) ListByRole(ctx context.Context, role model.Role, areaID, schemeID *uint64) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users u WHERE u.role=? AND u.is_active=1"
	args := []any{role}
	if areaID != nil {
		q += " AND (u.area_id=? OR u.scheme_id IN (SELECT id FROM schemes WHERE area_id=?))"
		args = append(args, *areaID, *areaID)
	}
	if schemeID != nil {
		q += " AND u.scheme_id=?"
		args = append(args, *schemeID)
	}
	q += " ORDER BY u.display_name"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdatePlacement rewrites role and both placement columns. The model's
// SetPlacement has already nulled the inapplicable one.
func (r *UserRepo) UpdatePlacement(ctx context.Context, u *model.User) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=?, area_id=?, scheme_id=?, display_name=? WHERE id=?",
		u.Role, u.AreaID, u.SchemeID, u.DisplayName, u.ID)
	return translateErr(err)
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return translateErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *UserRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	return translateErr(err)
}
