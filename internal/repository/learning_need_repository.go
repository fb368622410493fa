package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// LearningNeedRepo mirrors the 'learning_needs' table. Each transition is a
// guarded update on the expected prior status, so two requests completing
// the same need serialize: the second affects no rows and gets a conflict.
type LearningNeedRepo struct{ DB *sql.DB }

func NewLearningNeedRepo(db *sql.DB) *LearningNeedRepo { return &LearningNeedRepo{DB: db} }

const learningNeedColumns = "id, eyd_user_id, title, description, date_identified, status, submitted_at, completed_by_user_id, completed_at, created_at, updated_at"

func scanLearningNeed(row interface{ Scan(...any) error }) (model.LearningNeed, error) {
	var (
		l           model.LearningNeed
		submittedAt sql.NullTime
		completedBy sql.NullInt64
		completedAt sql.NullTime
	)
	err := row.Scan(&l.ID, &l.EYDUserID, &l.Title, &l.Description, &l.DateIdentified,
		&l.Status, &submittedAt, &completedBy, &completedAt, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return model.LearningNeed{}, translateErr(err)
	}
	if submittedAt.Valid {
		l.SubmittedAt = &submittedAt.Time
	}
	if completedBy.Valid {
		v := uint64(completedBy.Int64)
		l.CompletedByUserID = &v
	}
	if completedAt.Valid {
		l.CompletedAt = &completedAt.Time
	}
	return l, nil
}

func (repo *LearningNeedRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.LearningNeed) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO learning_needs (eyd_user_id, title, description, date_identified, status) VALUES (?,?,?,?,?)",
		l.EYDUserID, l.Title, l.Description, l.DateIdentified, model.LearningNeedDraft)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = uint64(id)
	l.Status = model.LearningNeedDraft
	return nil
}

func (repo *LearningNeedRepo) GetByID(ctx context.Context, id uint64) (model.LearningNeed, error) {
	return scanLearningNeed(repo.DB.QueryRowContext(ctx,
		"SELECT "+learningNeedColumns+" FROM learning_needs WHERE id=? LIMIT 1", id))
}

func (repo *LearningNeedRepo) ListByOwner(ctx context.Context, eydUserID uint64) ([]model.LearningNeed, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+learningNeedColumns+" FROM learning_needs WHERE eyd_user_id=? ORDER BY date_identified DESC", eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LearningNeed
	for rows.Next() {
		l, err := scanLearningNeed(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SaveDraftTx persists a draft edit inside the caller's transaction, beside
// the mapping swap.
func (repo *LearningNeedRepo) SaveDraftTx(ctx context.Context, tx *sql.Tx, l *model.LearningNeed) error {
	return guarded(tx.ExecContext(ctx,
		"UPDATE learning_needs SET title=?, description=?, date_identified=?, updated_at=? WHERE id=? AND status=?",
		l.Title, l.Description, l.DateIdentified, l.UpdatedAt, l.ID, model.LearningNeedDraft))
}

func (repo *LearningNeedRepo) SaveSubmit(ctx context.Context, l *model.LearningNeed) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE learning_needs SET status=?, submitted_at=?, updated_at=? WHERE id=? AND status=?",
		model.LearningNeedSubmitted, l.SubmittedAt, l.UpdatedAt, l.ID, model.LearningNeedDraft))
}

func (repo *LearningNeedRepo) SaveRevert(ctx context.Context, l *model.LearningNeed) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE learning_needs SET status=?, submitted_at=NULL, updated_at=? WHERE id=? AND status=?",
		model.LearningNeedDraft, l.UpdatedAt, l.ID, model.LearningNeedSubmitted))
}

func (repo *LearningNeedRepo) SaveComplete(ctx context.Context, l *model.LearningNeed) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE learning_needs SET status=?, completed_by_user_id=?, completed_at=?, updated_at=? WHERE id=? AND status=?",
		model.LearningNeedCompleted, l.CompletedByUserID, l.CompletedAt, l.UpdatedAt, l.ID, model.LearningNeedSubmitted))
}
