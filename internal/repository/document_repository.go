package repository

import (
	"context"
	"database/sql"

	"github.com/dentraining/portfolio-api/internal/model"
)

// DocumentRepo stores upload metadata only; the file bytes live on local
// disk under the configured upload directory.
type DocumentRepo struct{ DB *sql.DB }

func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{DB: db} }

func (repo *DocumentRepo) Create(ctx context.Context, d *model.DocumentUpload) error {
	res, err := repo.DB.ExecContext(ctx,
		"INSERT INTO document_uploads (user_id, file_name, file_path, content_type, size_bytes, category) VALUES (?,?,?,?,?,?)",
		d.UserID, d.FileName, d.FilePath, d.ContentType, d.SizeBytes, d.Category)
	if err != nil {
		return translateErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

func (repo *DocumentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.DocumentUpload, error) {
	rows, err := repo.DB.QueryContext(ctx,
		"SELECT id, user_id, file_name, file_path, content_type, size_bytes, category, uploaded_at FROM document_uploads WHERE user_id=? ORDER BY uploaded_at DESC",
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DocumentUpload
	for rows.Next() {
		var d model.DocumentUpload
		if err := rows.Scan(&d.ID, &d.UserID, &d.FileName, &d.FilePath, &d.ContentType, &d.SizeBytes, &d.Category, &d.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
