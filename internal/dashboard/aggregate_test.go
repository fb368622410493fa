package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	rows := []StatusCount{
		{Kind: "Reflection", Status: "DRAFT", Count: 3},
		{Kind: "Reflection", Status: "LOCKED", Count: 2},
		{Kind: "SLE", Status: "INVITED", Count: 1},
		{Kind: "SLE", Status: "REFLECTION_COMPLETED", Count: 4},
	}
	s := Summarize(rows)

	assert.Equal(t, 5, s.Totals["Reflection"])
	assert.Equal(t, 3, s.ByKind["Reflection"]["DRAFT"])
	assert.Equal(t, 2, s.ByKind["Reflection"]["LOCKED"])
	assert.Equal(t, 5, s.Totals["SLE"])
	assert.Empty(t, s.ByKind["LearningNeed"])
}

func TestCompletion(t *testing.T) {
	s := Summarize([]StatusCount{
		{Kind: "Reflection", Status: "DRAFT", Count: 1},
		{Kind: "Reflection", Status: "LOCKED", Count: 3},
		{Kind: "LearningNeed", Status: "DRAFT", Count: 2},
	})

	assert.Equal(t, 75, s.Completion("Reflection", "LOCKED"))
	assert.Equal(t, 0, s.Completion("LearningNeed", "COMPLETED"))
	assert.Equal(t, 0, s.Completion("SLE", "REFLECTION_COMPLETED"), "absent kind is zero, not a panic")

	// rounding: 1 of 3 complete -> 33
	s2 := Summarize([]StatusCount{
		{Kind: "PLT", Status: "LOCKED", Count: 1},
		{Kind: "PLT", Status: "DRAFT", Count: 2},
	})
	assert.Equal(t, 33, s2.Completion("PLT", "LOCKED"))
}
