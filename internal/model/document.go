package model

import "time"

// DocumentUpload stores metadata for an evidence file; the bytes live on
// disk under FilePath.
type DocumentUpload struct {
	ID          uint64
	UserID      uint64
	FileName    string
	FilePath    string
	ContentType string
	SizeBytes   int64
	Category    string
	UploadedAt  time.Time
}
