// Package epa implements the competency-tagging engine: cardinality rules
// for EPA selections, and the coverage matrix aggregated from mapping rows.
package epa

import (
	"time"

	"github.com/dentraining/portfolio-api/internal/model"
)

// Selection identifies what an EPA selection is attached to. SLEType is only
// consulted when Kind is KindSLE.
type Selection struct {
	Kind    model.EntityKind
	SLEType model.SLEType
}

// Cardinality returns the allowed selection size for a target. A max of 0
// means unbounded. Generic entities take 1-2 EPAs; MiniCEX, DOPS and DOPSSim
// events exactly 1, other SLE subtypes 1-2; protected learning time at
// least 2.
func Cardinality(sel Selection) (min, max int) {
	switch sel.Kind {
	case model.KindPLT:
		return 2, 0
	case model.KindSLE:
		if sel.SLEType.SingleEPA() {
			return 1, 1
		}
		return 1, 2
	default:
		return 1, 2
	}
}

// ValidateSelection reports whether epaIDs is an acceptable selection for
// the target: correct cardinality, no repeats, and every id referring to an
// active EPA. It never returns an error; callers surface a field-level
// validation failure on false.
func ValidateSelection(sel Selection, epaIDs []uint64, active map[uint64]bool) bool {
	if sel.Kind == model.KindSLE && !sel.SLEType.Valid() {
		return false
	}
	if !sel.Kind.Valid() {
		return false
	}
	min, max := Cardinality(sel)
	if len(epaIDs) < min || (max > 0 && len(epaIDs) > max) {
		return false
	}
	seen := make(map[uint64]bool, len(epaIDs))
	for _, id := range epaIDs {
		if seen[id] || !active[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// ActivityColumn is one column of the coverage matrix. SLE mappings are
// bucketed per subtype; every other entity kind maps to a single column.
type ActivityColumn string

const (
	ColReflection       ActivityColumn = "REFLECTION"
	ColPLT              ActivityColumn = "PLT"
	ColSignificantEvent ActivityColumn = "SIG_EVENT"
	ColLearningNeed     ActivityColumn = "LEARNING_NEED"
	ColClinicalLog      ActivityColumn = "CLINICAL_LOG"
	ColSLECBD           ActivityColumn = "SLE_CBD"
	ColSLEDOPS          ActivityColumn = "SLE_DOPS"
	ColSLEMiniCEX       ActivityColumn = "SLE_MINICEX"
	ColSLEDOPSSim       ActivityColumn = "SLE_DOPSSIM"
	ColSLEDtCT          ActivityColumn = "SLE_DTCT"
	ColSLEDENTL         ActivityColumn = "SLE_DENTL"
)

// ActivityColumns fixes the column order of the matrix.
var ActivityColumns = []ActivityColumn{
	ColReflection, ColPLT, ColSignificantEvent, ColLearningNeed, ColClinicalLog,
	ColSLECBD, ColSLEDOPS, ColSLEMiniCEX, ColSLEDOPSSim, ColSLEDtCT, ColSLEDENTL,
}

var sleColumns = map[model.SLEType]ActivityColumn{
	model.SLECBD:     ColSLECBD,
	model.SLEDOPS:    ColSLEDOPS,
	model.SLEMiniCEX: ColSLEMiniCEX,
	model.SLEDOPSSim: ColSLEDOPSSim,
	model.SLEDtCT:    ColSLEDtCT,
	model.SLEDENTL:   ColSLEDENTL,
}

// ColumnFor maps a mapping target to its matrix column. The second return
// is false for kinds that have no column (never the case for known kinds).
func ColumnFor(kind model.EntityKind, sleType model.SLEType) (ActivityColumn, bool) {
	switch kind {
	case model.KindReflection:
		return ColReflection, true
	case model.KindPLT:
		return ColPLT, true
	case model.KindSignificantEvent:
		return ColSignificantEvent, true
	case model.KindLearningNeed:
		return ColLearningNeed, true
	case model.KindClinicalLog:
		return ColClinicalLog, true
	case model.KindSLE:
		col, ok := sleColumns[sleType]
		return col, ok
	}
	return "", false
}

// Intensity is the presentation band for a cell count.
type Intensity string

const (
	IntensityNone     Intensity = "none"
	IntensityLow      Intensity = "low"
	IntensityMedium   Intensity = "medium"
	IntensityHigh     Intensity = "high"
	IntensityVeryHigh Intensity = "very-high"
	IntensityMax      Intensity = "max"
)

// IntensityFor bands a count: 0, 1, 2-3, 4-5, 6-7, 8+.
func IntensityFor(count int) Intensity {
	switch {
	case count <= 0:
		return IntensityNone
	case count == 1:
		return IntensityLow
	case count <= 3:
		return IntensityMedium
	case count <= 5:
		return IntensityHigh
	case count <= 7:
		return IntensityVeryHigh
	}
	return IntensityMax
}

// MatrixRow is one mapping row flattened for aggregation: which EPA, which
// column it lands in, and when the mapping was created.
type MatrixRow struct {
	EPAID     uint64
	Column    ActivityColumn
	CreatedAt time.Time
}

// Cell is one EPA x activity intersection.
type Cell struct {
	Count     int        `json:"count"`
	Latest    *time.Time `json:"latest,omitempty"`
	Intensity Intensity  `json:"intensity"`
}

// Matrix is the full coverage grid for one trainee. Cells holds an entry
// for every (EPA, column) pair, including empty ones, so rendering needs no
// existence checks.
type Matrix struct {
	EPAs    []model.EPA      `json:"epas"`
	Columns []ActivityColumn `json:"columns"`
	Cells   map[uint64]map[ActivityColumn]Cell `json:"cells"`
}

// BuildMatrix groups mapping rows by (EPA, column), counting and keeping the
// latest creation time per cell.
func BuildMatrix(epas []model.EPA, rows []MatrixRow) Matrix {
	m := Matrix{EPAs: epas, Columns: ActivityColumns, Cells: make(map[uint64]map[ActivityColumn]Cell, len(epas))}
	for _, e := range epas {
		byCol := make(map[ActivityColumn]Cell, len(ActivityColumns))
		for _, col := range ActivityColumns {
			byCol[col] = Cell{Intensity: IntensityNone}
		}
		m.Cells[e.ID] = byCol
	}
	for _, row := range rows {
		byCol, ok := m.Cells[row.EPAID]
		if !ok {
			continue // mapping against an EPA outside the catalog slice
		}
		cell := byCol[row.Column]
		cell.Count++
		t := row.CreatedAt
		if cell.Latest == nil || t.After(*cell.Latest) {
			cell.Latest = &t
		}
		cell.Intensity = IntensityFor(cell.Count)
		byCol[row.Column] = cell
	}
	return m
}
