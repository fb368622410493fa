package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSLELifecycle(t *testing.T) {
	now := time.Now().UTC()

	t.Run("reflection requires completed assessment", func(t *testing.T) {
		s := SLE{ID: 1, EYDUserID: 10, Type: SLEMiniCEX}
		assert.ErrorIs(t, s.CompleteReflection("notes", now), ErrStateConflict)
	})

	t.Run("full flow", func(t *testing.T) {
		s := SLE{ID: 1, EYDUserID: 10, Type: SLECBD}
		require.NoError(t, s.CompleteAssessment("good rapport", "revise LA dosing", "Consultant", now))
		assert.True(t, s.IsAssessmentCompleted)
		assert.NotNil(t, s.AssessmentCompletedAt)

		require.NoError(t, s.CompleteReflection("will revise dosing tables", now))
		assert.True(t, s.IsReflectionCompleted)
	})

	t.Run("completed assessment is immutable", func(t *testing.T) {
		s := SLE{ID: 1, EYDUserID: 10, Type: SLEDOPS}
		require.NoError(t, s.CompleteAssessment("original", "original", "SpR", now))
		err := s.CompleteAssessment("overwritten", "overwritten", "intruder", now)
		assert.ErrorIs(t, err, ErrStateConflict)
		assert.Equal(t, "original", s.BehaviourFeedback)
	})

	t.Run("reflection submits once", func(t *testing.T) {
		s := SLE{ID: 1, EYDUserID: 10, Type: SLEDtCT, IsAssessmentCompleted: true}
		require.NoError(t, s.CompleteReflection("first", now))
		assert.ErrorIs(t, s.CompleteReflection("second", now), ErrStateConflict)
		assert.Equal(t, "first", s.ReflectionNotes)
	})

	t.Run("no invite edits after assessment", func(t *testing.T) {
		s := SLE{ID: 1, EYDUserID: 10, Type: SLEDENTL, IsAssessmentCompleted: true}
		assert.ErrorIs(t, s.Update("retitled", now, now), ErrStateConflict)
	})
}

func TestSLETypeCardinalityFlags(t *testing.T) {
	single := map[SLEType]bool{
		SLEMiniCEX: true,
		SLEDOPS:    true,
		SLEDOPSSim: true,
		SLECBD:     false,
		SLEDtCT:    false,
		SLEDENTL:   false,
	}
	for typ, want := range single {
		assert.Equal(t, want, typ.SingleEPA(), "SingleEPA(%s)", typ)
	}
	assert.False(t, SLEType("BOGUS").Valid())
}

func TestReviewSections(t *testing.T) {
	now := time.Now().UTC()

	newReview := func(kind ReviewKind) Review {
		return Review{
			ID: 1, Kind: kind, EYDUserID: 10, ESUserID: 20,
			ESStatus: SectionNotStarted, EYDStatus: SectionNotStarted, PanelStatus: SectionNotStarted,
		}
	}

	t.Run("eyd section gated on es completion", func(t *testing.T) {
		r := newReview(ReviewIRCP)
		assert.ErrorIs(t, r.SaveEYDSection("too early", now), ErrStateConflict)

		require.NoError(t, r.SaveESSection("draft", now))
		assert.Equal(t, SectionInProgress, r.ESStatus)
		require.NoError(t, r.CompleteESSection("good progress", now))

		require.NoError(t, r.SaveEYDSection("my reflection", now))
		assert.Equal(t, SectionInProgress, r.EYDStatus)
	})

	t.Run("panel locks ircp", func(t *testing.T) {
		r := newReview(ReviewIRCP)
		require.NoError(t, r.CompleteESSection("summary", now))
		require.NoError(t, r.CompleteEYDSection("reflection", now))
		assert.False(t, r.IsLocked, "IRCP waits for the panel")

		require.NoError(t, r.CompletePanelSection("Outcome 1", "keep it up", now))
		assert.True(t, r.IsLocked)
		assert.ErrorIs(t, r.CompleteESSection("late edit", now), ErrStateConflict)
	})

	t.Run("adhoc has no panel and locks at eyd completion", func(t *testing.T) {
		r := newReview(ReviewAdHoc)
		require.NoError(t, r.CompleteESSection("summary", now))
		require.NoError(t, r.CompleteEYDSection("reflection", now))
		assert.True(t, r.IsLocked)
		assert.ErrorIs(t, r.CompletePanelSection("x", "y", now), ErrStateConflict)
	})

	t.Run("panel before eyd is rejected", func(t *testing.T) {
		r := newReview(ReviewFRCP)
		require.NoError(t, r.CompleteESSection("summary", now))
		assert.ErrorIs(t, r.CompletePanelSection("x", "y", now), ErrStateConflict)
	})
}

func TestESInductionToggle(t *testing.T) {
	now := time.Now().UTC()
	ind := ESInduction{ID: 1, EYDUserID: 10, ESUserID: 20}

	require.NoError(t, ind.Complete(now))
	assert.NotNil(t, ind.CompletedAt)
	assert.ErrorIs(t, ind.Update(now, "late notes", now), ErrStateConflict)

	// unlike locked entities, induction can be reopened
	require.NoError(t, ind.Reopen(now))
	assert.Nil(t, ind.CompletedAt)
	assert.NoError(t, ind.Update(now, "amended notes", now))
}
