package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/starford/tabula/internal/models"
)

// parseXLSX reads the first worksheet of an Office Open XML workbook.
func parseXLSX(r io.Reader) ([]*models.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parser: open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("parser: read sheet %q: %w", sheet, err)
	}
	start := firstNonEmpty(rows)
	if start < 0 {
		return nil, nil
	}
	headers := sheetHeaders(rows[start])

	var out []*models.Record
	for i := start + 1; i < len(rows); i++ {
		rec := models.NewRecord(len(headers))
		for col, raw := range rows[i] {
			if raw == "" {
				continue
			}
			key := "_" + strconv.Itoa(col)
			if col < len(headers) {
				key = headers[col]
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("parser: cell (%d,%d): %w", col+1, i+1, err)
			}
			typ, err := f.GetCellType(sheet, cell)
			if err != nil {
				typ = excelize.CellTypeUnset
			}
			rec.Set(key, xlsxValue(typ, raw))
		}
		if rec.Len() > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// xlsxValue maps a raw cell to a Value using the cell's stored type.
func xlsxValue(typ excelize.CellType, raw string) models.Value {
	switch typ {
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return models.Number(f)
		}
	case excelize.CellTypeBool:
		switch strings.ToLower(raw) {
		case "1", "true":
			return models.Bool(true)
		case "0", "false":
			return models.Bool(false)
		}
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return models.Date(t)
			}
		}
	}
	return models.String(raw)
}
