package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// ReflectionRepo mirrors the 'reflections' table. Lifecycle updates are
// guarded on is_locked so a locked row rejects stale writers.
type ReflectionRepo struct{ DB *sql.DB }

func NewReflectionRepo(db *sql.DB) *ReflectionRepo { return &ReflectionRepo{DB: db} }

const reflectionColumns = "id, eyd_user_id, title, content, reflection_date, is_locked, created_at, updated_at"

func scanReflection(row interface{ Scan(...any) error }) (model.Reflection, error) {
	var r model.Reflection
	err := row.Scan(&r.ID, &r.EYDUserID, &r.Title, &r.Content, &r.ReflectionDate,
		&r.IsLocked, &r.CreatedAt, &r.UpdatedAt)
	return r, translateErr(err)
}

// CreateTx inserts a reflection within the caller's transaction so the row
// and its EPA mappings commit together.
func (repo *ReflectionRepo) CreateTx(ctx context.Context, tx *sql.Tx, r *model.Reflection) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO reflections (eyd_user_id, title, content, reflection_date, is_locked) VALUES (?,?,?,?,0)",
		r.EYDUserID, r.Title, r.Content, r.ReflectionDate)
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

func (repo *ReflectionRepo) GetByID(ctx context.Context, id uint64) (model.Reflection, error) {
	return scanReflection(repo.DB.QueryRowContext(ctx,
		"SELECT "+reflectionColumns+" FROM reflections WHERE id=? LIMIT 1", id))
}

func (repo *ReflectionRepo) ListByOwner(ctx context.Context, eydUserID uint64) ([]model.Reflection, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+reflectionColumns+" FROM reflections WHERE eyd_user_id=? ORDER BY reflection_date DESC", eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reflection
	for rows.Next() {
		r, err := scanReflection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveDraftTx persists an edit made through the model transition within the
// caller's transaction; the guard repeats the unlocked precondition.
func (repo *ReflectionRepo) SaveDraftTx(ctx context.Context, tx *sql.Tx, r *model.Reflection) error {
	return guarded(tx.ExecContext(ctx,
		"UPDATE reflections SET title=?, content=?, reflection_date=?, updated_at=? WHERE id=? AND is_locked=0",
		r.Title, r.Content, r.ReflectionDate, r.UpdatedAt, r.ID))
}

// Lock finalizes the reflection; a second lock attempt affects no rows and
// comes back as a state conflict.
func (repo *ReflectionRepo) Lock(ctx context.Context, r *model.Reflection) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE reflections SET is_locked=1, updated_at=? WHERE id=? AND is_locked=0",
		r.UpdatedAt, r.ID))
}
