package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/repository"
)

func assignmentRow(id, eydUserID, esUserID uint64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "eyd_user_id", "es_user_id", "assigned_date", "is_active"}).
		AddRow(id, eydUserID, esUserID, time.Now().UTC(), true)
}

// Deactivation is scoped exactly like creation: an admin only severs links
// whose trainee sits in their own area.
func TestDeactivateAssignmentScopedToAdminArea(t *testing.T) {
	newHandler := func(env *mockEnv) *AssignmentHandler {
		return NewAssignmentHandler(zap.NewNop(), env.users,
			repository.NewOrgRepo(env.db), repository.NewAssignmentRepo(env.db), nil)
	}

	t.Run("admin of another area is refused", func(t *testing.T) {
		env := newMockEnv(t)
		// actor: admin of area 1; trainee: scheme 200 which sits in area 2
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(50, "ADMIN", 1, nil))
		env.mock.ExpectQuery("SELECT id, eyd_user_id, es_user_id, .+ FROM es_assignments WHERE id=").
			WillReturnRows(assignmentRow(7, 10, 20))
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(10, "EYD", nil, 200))
		env.mock.ExpectQuery("SELECT area_id FROM schemes WHERE id=").
			WillReturnRows(schemeAreaRow(2))

		c, rec := newTestContext(http.MethodDelete, "/v1/admin/assignments/7", "", 50)
		c.SetParamNames("id")
		c.SetParamValues("7")

		require.NoError(t, newHandler(env).Deactivate(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet(),
			"no deactivation may reach the database")
	})

	t.Run("admin of the trainee's area deactivates", func(t *testing.T) {
		env := newMockEnv(t)
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(50, "ADMIN", 1, nil))
		env.mock.ExpectQuery("SELECT id, eyd_user_id, es_user_id, .+ FROM es_assignments WHERE id=").
			WillReturnRows(assignmentRow(7, 10, 20))
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(10, "EYD", nil, 200))
		env.mock.ExpectQuery("SELECT area_id FROM schemes WHERE id=").
			WillReturnRows(schemeAreaRow(1))
		env.mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		env.mock.ExpectExec("UPDATE es_assignments SET is_active=0").
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, rec := newTestContext(http.MethodDelete, "/v1/admin/assignments/7", "", 50)
		c.SetParamNames("id")
		c.SetParamValues("7")

		require.NoError(t, newHandler(env).Deactivate(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("superuser skips the area check", func(t *testing.T) {
		env := newMockEnv(t)
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(70, "SUPERUSER", nil, nil))
		env.mock.ExpectQuery("SELECT id, eyd_user_id, es_user_id, .+ FROM es_assignments WHERE id=").
			WillReturnRows(assignmentRow(7, 10, 20))
		env.mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		env.mock.ExpectExec("UPDATE es_assignments SET is_active=0").
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, rec := newTestContext(http.MethodDelete, "/v1/admin/assignments/7", "", 70)
		c.SetParamNames("id")
		c.SetParamValues("7")

		require.NoError(t, newHandler(env).Deactivate(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}
