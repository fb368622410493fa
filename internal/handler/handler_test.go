package handler

import (
	"database/sql"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/dentraining/portfolio-api/internal/authz"
	"github.com/dentraining/portfolio-api/internal/repository"
)

// mockEnv backs the handler tests with a sqlmock-driven *sql.DB shared by
// every repository, so each test scripts the exact query sequence a request
// is allowed to make.
type mockEnv struct {
	db       *sql.DB
	mock     sqlmock.Sqlmock
	users    *repository.UserRepo
	resolver *authz.Resolver
}

func newMockEnv(t *testing.T) *mockEnv {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := repository.NewUserRepo(db)
	dir := repository.AuthDirectory{
		Users:       users,
		Assignments: repository.NewAssignmentRepo(db),
		Org:         repository.NewOrgRepo(db),
	}
	return &mockEnv{db: db, mock: mock, users: users, resolver: authz.NewResolver(dir)}
}

// newTestContext builds an echo context for an authenticated request.
func newTestContext(method, target, body string, userID uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	return c, rec
}

func userRow(id uint64, role string, areaID, schemeID any) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "email", "display_name", "password_hash", "role",
		"area_id", "scheme_id", "is_active", "created_at", "updated_at",
	}).AddRow(id, "user@deanery.test", "Test User", "x", role, areaID, schemeID, true, now, now)
}

func epaCatalogRows(ids ...uint64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "code", "title", "description", "is_active"})
	for _, id := range ids {
		rows.AddRow(id, "EPA", "title", "desc", true)
	}
	return rows
}

func schemeAreaRow(areaID uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"area_id"}).AddRow(areaID)
}
