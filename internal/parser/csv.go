package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/starford/tabula/internal/models"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV reads comma-separated text. Every cell is kept as a String; cells
// beyond the header width are keyed by "_<index>".
func parseCSV(data []byte) ([]*models.Record, error) {
	reader := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parser: csv header: %w", err)
	}

	var out []*models.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parser: csv row %d: %w", len(out)+2, err)
		}
		rec := models.NewRecord(len(headers))
		for i, cell := range row {
			key := "_" + strconv.Itoa(i)
			if i < len(headers) {
				key = headers[i]
			}
			rec.Set(key, models.String(cell))
		}
		out = append(out, rec)
	}
	return out, nil
}
