package table

import (
	"context"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/okian/sqxrank/internal/domain/ranking"
)

// SheetName is the worksheet holding the ranked table.
const SheetName = "Ranking"

// XLSX writes ranked tables as spreadsheets.
type XLSX struct{}

// NewXLSX returns a spreadsheet writer.
func NewXLSX() *XLSX {
	return &XLSX{}
}

// WriteRanked writes the ranked table to path with the same columns as the
// delimited output. Numbers are stored as numeric cells; missing values
// leave the cell empty.
func (x *XLSX) WriteRanked(ctx context.Context, path string, res *ranking.Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	header := make([]any, 0, len(res.Metrics)+3)
	header = append(header, PositionColumn, IDColumn)
	for _, m := range res.Metrics {
		header = append(header, m)
	}
	header = append(header, ScoreColumn)
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}

	for i, e := range res.Entries {
		row := make([]any, 0, len(header))
		row = append(row, e.Position, e.ID)
		for _, v := range e.Values {
			row = append(row, numericCell(v))
		}
		row = append(row, numericCell(e.Score))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("%w: %w", ErrWrite, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// numericCell maps NaN to nil so excelize leaves the cell empty.
func numericCell(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
