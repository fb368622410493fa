package epa

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentraining/portfolio-api/internal/model"
)

func activeSet(ids ...uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestValidateSelection(t *testing.T) {
	active := activeSet(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	tests := []struct {
		name string
		sel  Selection
		ids  []uint64
		want bool
	}{
		{"minicex exactly one", Selection{model.KindSLE, model.SLEMiniCEX}, []uint64{3}, true},
		{"minicex two rejected", Selection{model.KindSLE, model.SLEMiniCEX}, []uint64{3, 7}, false},
		{"dops exactly one", Selection{model.KindSLE, model.SLEDOPS}, []uint64{1}, true},
		{"dopssim two rejected", Selection{model.KindSLE, model.SLEDOPSSim}, []uint64{1, 2}, false},
		{"cbd allows two", Selection{model.KindSLE, model.SLECBD}, []uint64{1, 2}, true},
		{"cbd three rejected", Selection{model.KindSLE, model.SLECBD}, []uint64{1, 2, 3}, false},
		{"plt needs at least two", Selection{Kind: model.KindPLT}, []uint64{3}, false},
		{"plt two ok", Selection{Kind: model.KindPLT}, []uint64{3, 7}, true},
		{"plt many ok", Selection{Kind: model.KindPLT}, []uint64{1, 2, 3, 4, 5}, true},
		{"reflection one ok", Selection{Kind: model.KindReflection}, []uint64{5}, true},
		{"reflection two ok", Selection{Kind: model.KindReflection}, []uint64{5, 6}, true},
		{"reflection empty rejected", Selection{Kind: model.KindReflection}, nil, false},
		{"reflection three rejected", Selection{Kind: model.KindReflection}, []uint64{5, 6, 7}, false},
		{"inactive epa rejected", Selection{Kind: model.KindReflection}, []uint64{99}, false},
		{"repeat rejected", Selection{Kind: model.KindPLT}, []uint64{3, 3}, false},
		{"unknown kind rejected", Selection{Kind: model.EntityKind("Widget")}, []uint64{1}, false},
		{"unknown sle type rejected", Selection{model.KindSLE, model.SLEType("XRAY")}, []uint64{1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateSelection(tt.sel, tt.ids, active))
		})
	}
}

func TestIntensityBands(t *testing.T) {
	want := map[int]Intensity{
		0: IntensityNone,
		1: IntensityLow,
		2: IntensityMedium, 3: IntensityMedium,
		4: IntensityHigh, 5: IntensityHigh,
		6: IntensityVeryHigh, 7: IntensityVeryHigh,
		8: IntensityMax, 12: IntensityMax,
	}
	for count, band := range want {
		assert.Equal(t, band, IntensityFor(count), "count=%d", count)
	}
}

func TestColumnFor(t *testing.T) {
	col, ok := ColumnFor(model.KindSLE, model.SLEMiniCEX)
	require.True(t, ok)
	assert.Equal(t, ColSLEMiniCEX, col)

	col, ok = ColumnFor(model.KindPLT, "")
	require.True(t, ok)
	assert.Equal(t, ColPLT, col)

	_, ok = ColumnFor(model.EntityKind("Widget"), "")
	assert.False(t, ok)
}

func TestBuildMatrix(t *testing.T) {
	epas := []model.EPA{
		{ID: 1, Code: "EPA1"},
		{ID: 2, Code: "EPA2"},
	}
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	rows := []MatrixRow{
		{EPAID: 1, Column: ColReflection, CreatedAt: day(1)},
		{EPAID: 1, Column: ColReflection, CreatedAt: day(9)},
		{EPAID: 1, Column: ColReflection, CreatedAt: day(4)},
		{EPAID: 1, Column: ColSLEMiniCEX, CreatedAt: day(2)},
		{EPAID: 2, Column: ColPLT, CreatedAt: day(3)},
	}

	m := BuildMatrix(epas, rows)
	require.Len(t, m.Cells, 2)

	cell := m.Cells[1][ColReflection]
	assert.Equal(t, 3, cell.Count)
	require.NotNil(t, cell.Latest)
	assert.Equal(t, day(9), *cell.Latest, "latest keeps the max createdAt")
	assert.Equal(t, IntensityMedium, cell.Intensity)

	assert.Equal(t, 1, m.Cells[1][ColSLEMiniCEX].Count)
	assert.Equal(t, IntensityLow, m.Cells[1][ColSLEMiniCEX].Intensity)

	// untouched cells exist and are empty
	empty := m.Cells[2][ColReflection]
	assert.Equal(t, 0, empty.Count)
	assert.Nil(t, empty.Latest)
	assert.Equal(t, IntensityNone, empty.Intensity)

	// a mapping against an EPA outside the catalog is ignored
	m2 := BuildMatrix(epas, []MatrixRow{{EPAID: 42, Column: ColPLT, CreatedAt: day(1)}})
	assert.Equal(t, 0, m2.Cells[1][ColPLT].Count)
}
