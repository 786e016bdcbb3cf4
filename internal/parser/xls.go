package parser

import (
	"fmt"
	"io"
	"strconv"

	"github.com/extrame/xls"

	"github.com/starford/tabula/internal/models"
)

// parseXLS reads the first sheet of a legacy BIFF workbook. Cells are kept
// as their display text.
func parseXLS(r io.ReadSeeker) (out []*models.Record, err error) {
	// extrame/xls panics on some truncated or corrupt workbooks.
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("parser: corrupt xls: %v", p)
		}
	}()

	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("parser: open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	grid := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheetRow(sheet, i)
		if row == nil {
			grid = append(grid, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		grid = append(grid, cells)
	}

	start := firstNonEmpty(grid)
	if start < 0 {
		return nil, nil
	}
	headers := sheetHeaders(grid[start])

	for _, cells := range grid[start+1:] {
		rec := models.NewRecord(len(headers))
		for col, text := range cells {
			if text == "" {
				continue
			}
			key := "_" + strconv.Itoa(col)
			if col < len(headers) {
				key = headers[col]
			}
			rec.Set(key, models.String(text))
		}
		if rec.Len() > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// sheetRow returns row i, or nil when the sheet holds no record for it.
// WorkSheet.Row dereferences the missing row instead of returning nil.
func sheetRow(s *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return s.Row(i)
}
