package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/repository"
)

func pltRow(id, eydUserID uint64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "eyd_user_id", "title", "description", "activity_date",
		"duration_hours", "is_locked", "created_at", "updated_at",
	}).AddRow(id, eydUserID, "journal club", "", now, 2.0, false, now, now)
}

// expectPLTUpdatePrelude scripts everything an owner's update runs before
// the write transaction: actor load, entity load, resolver snapshot, EPA
// catalog check.
func expectPLTUpdatePrelude(env *mockEnv) {
	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WillReturnRows(userRow(10, "EYD", nil, 100))
	env.mock.ExpectQuery("SELECT .+ FROM protected_learning_times WHERE id=").
		WillReturnRows(pltRow(5, 10))
	env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
		WillReturnRows(userRow(10, "EYD", nil, 100))
	env.mock.ExpectQuery("SELECT area_id FROM schemes WHERE id=").
		WillReturnRows(schemeAreaRow(1))
	env.mock.ExpectQuery("SELECT area_id FROM schemes WHERE id=").
		WillReturnRows(schemeAreaRow(1))
	env.mock.ExpectQuery("SELECT .+ FROM epas WHERE is_active=1").
		WillReturnRows(epaCatalogRows(1, 2))
}

// An update rewrites the entity fields and the EPA tags in one transaction:
// either both land or neither does.
func TestPLTUpdateFieldsAndTagsCommitTogether(t *testing.T) {
	body := `{"title":"audit meeting","description":"case audit","activity_date":"2026-03-01T00:00:00Z","duration_hours":2,"epa_ids":[1,2]}`

	newHandler := func(env *mockEnv) *PLTHandler {
		return NewPLTHandler(env.db, zap.NewNop(), env.users,
			repository.NewPLTRepo(env.db), repository.NewEPARepo(env.db), env.resolver)
	}

	t.Run("mapping failure rolls back the field edit", func(t *testing.T) {
		env := newMockEnv(t)
		expectPLTUpdatePrelude(env)
		env.mock.ExpectBegin()
		env.mock.ExpectExec("UPDATE protected_learning_times SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		env.mock.ExpectExec("DELETE FROM epa_mappings").
			WillReturnError(errors.New("mapping table unavailable"))
		env.mock.ExpectRollback()

		c, rec := newTestContext(http.MethodPut, "/v1/plts/5", body, 10)
		c.SetParamNames("id")
		c.SetParamValues("5")

		require.NoError(t, newHandler(env).Update(c))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet(),
			"the field update must run inside the same transaction and be rolled back")
	})

	t.Run("both writes commit together", func(t *testing.T) {
		env := newMockEnv(t)
		expectPLTUpdatePrelude(env)
		env.mock.ExpectBegin()
		env.mock.ExpectExec("UPDATE protected_learning_times SET").
			WillReturnResult(sqlmock.NewResult(0, 1))
		env.mock.ExpectExec("DELETE FROM epa_mappings").
			WillReturnResult(sqlmock.NewResult(0, 1))
		env.mock.ExpectExec("INSERT INTO epa_mappings").
			WillReturnResult(sqlmock.NewResult(3, 2))
		env.mock.ExpectCommit()

		c, rec := newTestContext(http.MethodPut, "/v1/plts/5", body, 10)
		c.SetParamNames("id")
		c.SetParamValues("5")

		require.NoError(t, newHandler(env).Update(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})

	t.Run("concurrent lock aborts before the tags move", func(t *testing.T) {
		env := newMockEnv(t)
		expectPLTUpdatePrelude(env)
		env.mock.ExpectBegin()
		// the row locked between load and write: zero rows affected
		env.mock.ExpectExec("UPDATE protected_learning_times SET").
			WillReturnResult(sqlmock.NewResult(0, 0))
		env.mock.ExpectRollback()

		c, rec := newTestContext(http.MethodPut, "/v1/plts/5", body, 10)
		c.SetParamNames("id")
		c.SetParamValues("5")

		require.NoError(t, newHandler(env).Update(c))
		assert.Equal(t, http.StatusConflict, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}
