package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/model"
	"github.com/dentraining/portfolio-api/internal/repository"
)

func TestInductionEditableBy(t *testing.T) {
	ind := model.ESInduction{ID: 3, EYDUserID: 10, ESUserID: 20}

	tests := []struct {
		name  string
		actor model.User
		want  bool
	}{
		{"authoring es", model.User{ID: 20, Role: model.RoleES}, true},
		{"co-assigned es", model.User{ID: 21, Role: model.RoleES}, false},
		{"superuser", model.User{ID: 70, Role: model.RoleSuperuser}, true},
		{"trainee", model.User{ID: 10, Role: model.RoleEYD}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inductionEditableBy(tt.actor, ind))
		})
	}
}

func inductionRow(id, eydUserID, esUserID uint64) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "eyd_user_id", "es_user_id", "meeting_date", "notes",
		"is_completed", "completed_at", "created_at", "updated_at",
	}).AddRow(id, eydUserID, esUserID, now, "first meeting", false, nil, now, now)
}

// A second supervisor with their own active assignment can read the record
// but must not rewrite a colleague's induction.
func TestInductionCompleteRequiresAuthor(t *testing.T) {
	newHandler := func(env *mockEnv) *InductionHandler {
		return NewInductionHandler(zap.NewNop(), env.users,
			repository.NewInductionRepo(env.db), env.resolver)
	}

	t.Run("co-assigned es is refused", func(t *testing.T) {
		env := newMockEnv(t)
		// record authored by ES 20; the actor is ES 21, also actively assigned
		env.mock.ExpectQuery("SELECT .+ FROM es_inductions WHERE id=").
			WillReturnRows(inductionRow(3, 10, 20))
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(21, "ES", 1, nil))
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(10, "EYD", nil, 100))
		env.mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		env.mock.ExpectQuery("SELECT area_id FROM schemes WHERE id=").
			WillReturnRows(schemeAreaRow(1))

		c, rec := newTestContext(http.MethodPost, "/v1/inductions/3/complete", "", 21)
		c.SetParamNames("id")
		c.SetParamValues("3")

		require.NoError(t, newHandler(env).Complete(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet(),
			"no completion may reach the database")
	})

	t.Run("authoring es completes", func(t *testing.T) {
		env := newMockEnv(t)
		env.mock.ExpectQuery("SELECT .+ FROM es_inductions WHERE id=").
			WillReturnRows(inductionRow(3, 10, 20))
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(20, "ES", 1, nil))
		env.mock.ExpectQuery("SELECT .+ FROM users WHERE id=").
			WillReturnRows(userRow(10, "EYD", nil, 100))
		env.mock.ExpectQuery("SELECT EXISTS").
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(true))
		env.mock.ExpectQuery("SELECT area_id FROM schemes WHERE id=").
			WillReturnRows(schemeAreaRow(1))
		env.mock.ExpectExec("UPDATE es_inductions SET is_completed=1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, rec := newTestContext(http.MethodPost, "/v1/inductions/3/complete", "", 20)
		c.SetParamNames("id")
		c.SetParamValues("3")

		require.NoError(t, newHandler(env).Complete(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, env.mock.ExpectationsWereMet())
	})
}
