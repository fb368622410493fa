package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReflectionLockIsMonotonic(t *testing.T) {
	now := time.Now().UTC()
	r := Reflection{ID: 1, EYDUserID: 10, Title: "first extraction", IsLocked: false}

	require.NoError(t, r.Lock(now))
	assert.True(t, r.IsLocked)

	// Every write after locking must fail with a state conflict and leave
	// the stored fields untouched.
	assert.ErrorIs(t, r.Lock(now), ErrStateConflict)
	err := r.Update("changed", "changed", now, now)
	assert.ErrorIs(t, err, ErrStateConflict)
	assert.Equal(t, "first extraction", r.Title)
}

func TestSignificantEventSignOffOrdering(t *testing.T) {
	now := time.Now().UTC()

	t.Run("tpd before es is rejected", func(t *testing.T) {
		ev := SignificantEvent{ID: 1, EYDUserID: 10}
		assert.ErrorIs(t, ev.SignOffTPD(30, now), ErrStateConflict)
		assert.False(t, ev.TPDSignedOff)
		assert.False(t, ev.IsLocked)
	})

	t.Run("es then tpd locks the event", func(t *testing.T) {
		ev := SignificantEvent{ID: 1, EYDUserID: 10}
		require.NoError(t, ev.SignOffES(20, now))
		assert.True(t, ev.ESSignedOff)
		assert.False(t, ev.IsLocked, "ES sign-off alone must not lock")

		require.NoError(t, ev.SignOffTPD(30, now))
		assert.True(t, ev.TPDSignedOff)
		assert.True(t, ev.IsLocked, "TPD sign-off locks unconditionally")
	})

	t.Run("double es sign-off is a conflict", func(t *testing.T) {
		ev := SignificantEvent{ID: 1, EYDUserID: 10}
		require.NoError(t, ev.SignOffES(20, now))
		assert.ErrorIs(t, ev.SignOffES(21, now), ErrStateConflict)
		assert.Equal(t, uint64(20), *ev.ESSignedOffBy)
	})

	t.Run("no edits after es sign-off", func(t *testing.T) {
		ev := SignificantEvent{ID: 1, EYDUserID: 10, Title: "needle stick"}
		require.NoError(t, ev.SignOffES(20, now))
		assert.ErrorIs(t, ev.Update("x", "y", now, now), ErrStateConflict)
		assert.Equal(t, "needle stick", ev.Title)
	})
}

func TestLearningNeedWorkflow(t *testing.T) {
	now := time.Now().UTC()

	t.Run("draft submitted oscillation", func(t *testing.T) {
		ln := LearningNeed{ID: 1, EYDUserID: 10, Status: LearningNeedDraft}
		require.NoError(t, ln.Submit(now))
		assert.Equal(t, LearningNeedSubmitted, ln.Status)
		assert.NotNil(t, ln.SubmittedAt)

		require.NoError(t, ln.Revert(now))
		assert.Equal(t, LearningNeedDraft, ln.Status)
		assert.Nil(t, ln.SubmittedAt, "revert clears the submission timestamp")
	})

	t.Run("complete only from submitted", func(t *testing.T) {
		ln := LearningNeed{ID: 1, EYDUserID: 10, Status: LearningNeedDraft}
		assert.ErrorIs(t, ln.Complete(20, now), ErrStateConflict)

		require.NoError(t, ln.Submit(now))
		require.NoError(t, ln.Complete(20, now))
		assert.Equal(t, LearningNeedCompleted, ln.Status)
		assert.Equal(t, uint64(20), *ln.CompletedByUserID)
		assert.NotNil(t, ln.CompletedAt)
	})

	t.Run("completed is terminal", func(t *testing.T) {
		ln := LearningNeed{ID: 1, EYDUserID: 10, Status: LearningNeedCompleted}
		assert.ErrorIs(t, ln.Submit(now), ErrStateConflict)
		assert.ErrorIs(t, ln.Revert(now), ErrStateConflict)
		assert.ErrorIs(t, ln.Update("t", "d", now, now), ErrStateConflict)
	})
}

func TestPLTLock(t *testing.T) {
	now := time.Now().UTC()
	plt := ProtectedLearningTime{ID: 1, EYDUserID: 10, Title: "journal club"}
	require.NoError(t, plt.Lock(now))
	assert.ErrorIs(t, plt.Update("x", "y", now, 1, now), ErrStateConflict)
	assert.Equal(t, "journal club", plt.Title)
}

func TestUserPlacement(t *testing.T) {
	area, scheme := uint64(1), uint64(2)
	tests := []struct {
		role       Role
		wantArea   bool
		wantScheme bool
	}{
		{RoleAdmin, true, false},
		{RoleES, true, false},
		{RoleTPD, false, true},
		{RoleEYD, false, true},
		{RoleDean, false, false},
		{RoleSuperuser, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			u := User{Role: tt.role}
			// both supplied; only the role-appropriate one may stick
			u.SetPlacement(&area, &scheme)
			if tt.wantArea {
				require.NotNil(t, u.AreaID)
				assert.Nil(t, u.SchemeID)
				assert.Equal(t, Placement{Kind: PlacedInArea, ID: area}, u.Placement())
			} else if tt.wantScheme {
				require.NotNil(t, u.SchemeID)
				assert.Nil(t, u.AreaID)
				assert.Equal(t, Placement{Kind: PlacedInScheme, ID: scheme}, u.Placement())
			} else {
				assert.Nil(t, u.AreaID)
				assert.Nil(t, u.SchemeID)
				assert.Equal(t, PlacedNowhere, u.Placement().Kind)
			}
		})
	}
}
