// Package export renders trainee data into downloadable workbooks.
package export

import (
	"bytes"

	"github.com/xuri/excelize/v2"

	"github.com/dentraining/portfolio-api/internal/epa"
)

const matrixSheet = "EPA Matrix"

// MatrixXLSX renders the coverage matrix as an xlsx workbook: one row per
// EPA, one column per activity type, raw counts in the cells.
func MatrixXLSX(m epa.Matrix) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(matrixSheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	header := []any{"EPA", "Title"}
	for _, col := range m.Columns {
		header = append(header, string(col))
	}
	if err := f.SetSheetRow(matrixSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, e := range m.EPAs {
		row := []any{e.Code, e.Title}
		for _, col := range m.Columns {
			row = append(row, m.Cells[e.ID][col].Count)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(matrixSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
