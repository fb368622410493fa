package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// SignificantEventRepo mirrors the 'significant_events' table. The two
// sign-offs are guarded updates: the TPD guard re-checks the ES sign-off at
// the point of mutation, so the ordering holds even against races.
type SignificantEventRepo struct{ DB *sql.DB }

func NewSignificantEventRepo(db *sql.DB) *SignificantEventRepo { return &SignificantEventRepo{DB: db} }

const sigEventColumns = `id, eyd_user_id, title, description, event_date,
	es_signed_off, es_signed_off_by, es_signed_off_at,
	tpd_signed_off, tpd_signed_off_by, tpd_signed_off_at,
	is_locked, created_at, updated_at`

func scanSigEvent(row interface{ Scan(...any) error }) (model.SignificantEvent, error) {
	var (
		s        model.SignificantEvent
		esBy     sql.NullInt64
		esAt     sql.NullTime
		tpdBy    sql.NullInt64
		tpdAt    sql.NullTime
	)
	err := row.Scan(&s.ID, &s.EYDUserID, &s.Title, &s.Description, &s.EventDate,
		&s.ESSignedOff, &esBy, &esAt, &s.TPDSignedOff, &tpdBy, &tpdAt,
		&s.IsLocked, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.SignificantEvent{}, translateErr(err)
	}
	if esBy.Valid {
		v := uint64(esBy.Int64)
		s.ESSignedOffBy = &v
	}
	if esAt.Valid {
		s.ESSignedOffAt = &esAt.Time
	}
	if tpdBy.Valid {
		v := uint64(tpdBy.Int64)
		s.TPDSignedOffBy = &v
	}
	if tpdAt.Valid {
		s.TPDSignedOffAt = &tpdAt.Time
	}
	return s, nil
}

func (repo *SignificantEventRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.SignificantEvent) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO significant_events (eyd_user_id, title, description, event_date) VALUES (?,?,?,?)",
		s.EYDUserID, s.Title, s.Description, s.EventDate)
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

func (repo *SignificantEventRepo) GetByID(ctx context.Context, id uint64) (model.SignificantEvent, error) {
	return scanSigEvent(repo.DB.QueryRowContext(ctx,
		"SELECT "+sigEventColumns+" FROM significant_events WHERE id=? LIMIT 1", id))
}

func (repo *SignificantEventRepo) ListByOwner(ctx context.Context, eydUserID uint64) ([]model.SignificantEvent, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT "+sigEventColumns+" FROM significant_events WHERE eyd_user_id=? ORDER BY event_date DESC", eydUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SignificantEvent
	for rows.Next() {
		s, err := scanSigEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveDraftTx persists a draft edit inside the caller's transaction, beside
// the mapping swap.
func (repo *SignificantEventRepo) SaveDraftTx(ctx context.Context, tx *sql.Tx, s *model.SignificantEvent) error {
	return guarded(tx.ExecContext(ctx,
		"UPDATE significant_events SET title=?, description=?, event_date=?, updated_at=? WHERE id=? AND es_signed_off=0 AND is_locked=0",
		s.Title, s.Description, s.EventDate, s.UpdatedAt, s.ID))
}

func (repo *SignificantEventRepo) SaveESSignOff(ctx context.Context, s *model.SignificantEvent) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE significant_events SET es_signed_off=1, es_signed_off_by=?, es_signed_off_at=?, updated_at=? WHERE id=? AND es_signed_off=0 AND is_locked=0",
		s.ESSignedOffBy, s.ESSignedOffAt, s.UpdatedAt, s.ID))
}

// SaveTPDSignOff locks the event. The guard requires the ES sign-off to be
// present already.
func (repo *SignificantEventRepo) SaveTPDSignOff(ctx context.Context, s *model.SignificantEvent) error {
	return guarded(repo.DB.ExecContext(ctx,
		"UPDATE significant_events SET tpd_signed_off=1, tpd_signed_off_by=?, tpd_signed_off_at=?, is_locked=1, updated_at=? WHERE id=? AND es_signed_off=1 AND tpd_signed_off=0",
		s.TPDSignedOffBy, s.TPDSignedOffAt, s.UpdatedAt, s.ID))
}
