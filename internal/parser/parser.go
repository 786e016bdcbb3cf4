// Package parser turns delimited-text and spreadsheet sources into loosely
// typed records keyed by their raw column headers.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/models"
)

// Kind is a supported source format.
type Kind string

// Supported kinds; the values double as the persisted file type.
const (
	KindCSV  Kind = models.FileTypeCSV
	KindXLSX Kind = models.FileTypeXLSX
	KindXLS  Kind = models.FileTypeXLS
)

// KindFromFilename maps a file extension to a Kind.
func KindFromFilename(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return KindCSV, nil
	case ".xlsx":
		return KindXLSX, nil
	case ".xls":
		return KindXLS, nil
	default:
		return "", fmt.Errorf("parser: %q: %w", name, apperr.ErrUnsupportedFormat)
	}
}

// Supported reports whether name has an accepted extension.
func Supported(name string) bool {
	_, err := KindFromFilename(name)
	return err == nil
}

// Parse reads the whole source and returns its records in file order.
// The first row supplies the keys. Spreadsheets contribute their first sheet only.
func Parse(r io.Reader, kind Kind) ([]*models.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("parser: read source: %w", err)
	}
	return ParseBytes(data, kind)
}

// ParseBytes is Parse over an in-memory source. Content the format reader
// rejects is reported as apperr.ErrInvalidFile.
func ParseBytes(data []byte, kind Kind) ([]*models.Record, error) {
	var (
		recs []*models.Record
		err  error
	)
	switch kind {
	case KindCSV:
		recs, err = parseCSV(data)
	case KindXLSX:
		recs, err = parseXLSX(bytes.NewReader(data))
	case KindXLS:
		recs, err = parseXLS(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("parser: kind %q: %w", kind, apperr.ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInvalidFile, err)
	}
	return recs, nil
}

// sheetHeaders names spreadsheet columns: blank headers become __EMPTY,
// __EMPTY_1, ... and repeated headers get a numeric suffix.
func sheetHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			h = "__EMPTY"
		}
		name := h
		if n, ok := seen[h]; ok {
			name = fmt.Sprintf("%s_%d", h, n)
			seen[h] = n + 1
		} else {
			seen[h] = 1
		}
		out[i] = name
	}
	return out
}

// firstNonEmpty returns the index of the first row with a non-blank cell, or -1.
func firstNonEmpty(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}
	return -1
}
