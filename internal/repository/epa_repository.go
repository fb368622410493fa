package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dentraining/portfolio-api/internal/epa"
	"github.com/dentraining/portfolio-api/internal/model"
)

// EPARepo covers the fixed competency catalog and the polymorphic mapping
// table tying portfolio entities to EPA codes.
type EPARepo struct{ DB *sql.DB }

func NewEPARepo(db *sql.DB) *EPARepo { return &EPARepo{DB: db} }

// ListActive returns the active catalog ordered by code.
func (r *EPARepo) ListActive(ctx context.Context) ([]model.EPA, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, code, title, description, is_active FROM epas WHERE is_active=1 ORDER BY code")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var epas []model.EPA
	for rows.Next() {
		var e model.EPA
		if err := rows.Scan(&e.ID, &e.Code, &e.Title, &e.Description, &e.IsActive); err != nil {
			return nil, err
		}
		epas = append(epas, e)
	}
	return epas, rows.Err()
}

// ActiveIDSet returns the active catalog as a set, for selection validation.
func (r *EPARepo) ActiveIDSet(ctx context.Context) (map[uint64]bool, error) {
	epas, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[uint64]bool, len(epas))
	for _, e := range epas {
		set[e.ID] = true
	}
	return set, nil
}

// MappingWithEPA is a mapping row joined with its EPA detail.
type MappingWithEPA struct {
	model.EPAMapping
	Code  string `json:"code"`
	Title string `json:"title"`
}

// MappingsFor returns the mappings of one entity, ordered by EPA code.
func (r *EPARepo) MappingsFor(ctx context.Context, kind model.EntityKind, entityID uint64) ([]MappingWithEPA, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.id, m.epa_id, m.entity_kind, m.entity_id, m.user_id, m.created_at, e.code, e.title
		 FROM epa_mappings m JOIN epas e ON e.id = m.epa_id
		 WHERE m.entity_kind=? AND m.entity_id=?
		 ORDER BY e.code`, kind, entityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MappingWithEPA
	for rows.Next() {
		var m MappingWithEPA
		if err := rows.Scan(&m.ID, &m.EPAID, &m.EntityKind, &m.EntityID, &m.UserID, &m.CreatedAt, &m.Code, &m.Title); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ReplaceMappingsTx swaps the full mapping set of an entity inside the
// caller's transaction: delete everything, bulk-insert the new ids. The
// unique (entity_kind, entity_id, epa_id) index catches repeats.
func (r *EPARepo) ReplaceMappingsTx(ctx context.Context, tx *sql.Tx, kind model.EntityKind, entityID, userID uint64, epaIDs []uint64) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM epa_mappings WHERE entity_kind=? AND entity_id=?", kind, entityID); err != nil {
		return translateErr(err)
	}
	if len(epaIDs) == 0 {
		return nil
	}
	q := "INSERT INTO epa_mappings (epa_id, entity_kind, entity_id, user_id) VALUES "
	args := make([]any, 0, len(epaIDs)*4)
	placeholders := make([]string, 0, len(epaIDs))
	for _, epaID := range epaIDs {
		placeholders = append(placeholders, "(?,?,?,?)")
		args = append(args, epaID, kind, entityID, userID)
	}
	_, err := tx.ExecContext(ctx, q+strings.Join(placeholders, ","), args...)
	return translateErr(err)
}

// DeleteMappingsTx removes an entity's mappings, used when the entity row
// itself is deleted.
func (r *EPARepo) DeleteMappingsTx(ctx context.Context, tx *sql.Tx, kind model.EntityKind, entityID uint64) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM epa_mappings WHERE entity_kind=? AND entity_id=?", kind, entityID)
	return translateErr(err)
}

// MatrixRows flattens one user's mappings into matrix rows, resolving SLE
// mappings to their subtype column via a join.
func (r *EPARepo) MatrixRows(ctx context.Context, userID uint64) ([]epa.MatrixRow, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT m.epa_id, m.entity_kind, COALESCE(s.sle_type, ''), m.created_at
		 FROM epa_mappings m
		 LEFT JOIN sles s ON m.entity_kind='SLE' AND s.id = m.entity_id
		 WHERE m.user_id=?`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []epa.MatrixRow
	for rows.Next() {
		var (
			row     epa.MatrixRow
			kind    model.EntityKind
			sleType model.SLEType
		)
		if err := rows.Scan(&row.EPAID, &kind, &sleType, &row.CreatedAt); err != nil {
			return nil, err
		}
		col, ok := epa.ColumnFor(kind, sleType)
		if !ok {
			continue // mapping to a kind with no matrix column
		}
		row.Column = col
		out = append(out, row)
	}
	return out, rows.Err()
}
