package handler

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

const maxUploadBytes = 10 << 20 // 10 MiB

// DocumentHandler stores supporting evidence files on local disk with the
// metadata row in MySQL. Uploads are private to their owner plus whoever
// may view the owner's portfolio.
type DocumentHandler struct {
	Cfg       config.Config
	Log       *zap.Logger
	Users     *repository.UserRepo
	Documents *repository.DocumentRepo
	Resolver  *authz.Resolver
}

func NewDocumentHandler(cfg config.Config, log *zap.Logger, users *repository.UserRepo,
	docs *repository.DocumentRepo, res *authz.Resolver) *DocumentHandler {
	return &DocumentHandler{Cfg: cfg, Log: log, Users: users, Documents: docs, Resolver: res}
}

// Upload accepts one multipart file plus an optional category field.
func (h *DocumentHandler) Upload(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	if fh.Size > maxUploadBytes {
		return writeErr(c, h.Log, model.NewValidationError(nil,
			model.FieldError{Field: "file", Error: "file exceeds the 10 MiB limit"}))
	}

	src, err := fh.Open()
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer src.Close()

	dir := filepath.Join(h.Cfg.UploadDir, strconv.FormatUint(actor.ID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return writeErr(c, h.Log, err)
	}
	// timestamp prefix keeps repeated uploads of the same filename apart
	name := strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + filepath.Base(fh.Filename)
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return writeErr(c, h.Log, err)
	}

	d := model.DocumentUpload{
		UserID:      actor.ID,
		FileName:    fh.Filename,
		FilePath:    path,
		ContentType: fh.Header.Get("Content-Type"),
		SizeBytes:   fh.Size,
		Category:    c.FormValue("category"),
	}
	if err := h.Documents.Create(ctx, &d); err != nil {
		_ = os.Remove(path)
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, d)
}

// List returns a user's upload metadata, subject to portfolio view access.
func (h *DocumentHandler) List(c echo.Context) error {
	ctx, cancel := reqContext(c)
	defer cancel()

	actor, err := loadActor(ctx, c, h.Users)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	ownerID, err := ownerParamOrSelf(c, actor)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	if _, err := h.Resolver.RequireView(ctx, actor, ownerID); err != nil {
		return writeErr(c, h.Log, err)
	}
	out, err := h.Documents.ListByUser(ctx, ownerID)
	if err != nil {
		return writeErr(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, out)
}
