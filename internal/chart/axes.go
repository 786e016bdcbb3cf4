package chart

import (
	"math"

	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/schema"
)

// SelectXAxis picks the first key of the first row.
func SelectXAxis(rows []*models.Record) (string, bool) {
	keys := firstKeys(rows)
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

// SelectYAxis picks the first key whose first-row value is numeric, falling
// back to the second key.
func SelectYAxis(rows []*models.Record) (string, bool) {
	keys := firstKeys(rows)
	for _, k := range keys {
		v, _ := rows[0].Get(k)
		if numericCell(v) {
			return k, true
		}
	}
	if len(keys) > 1 {
		return keys[1], true
	}
	return "", false
}

// SelectCategory picks the first key whose first-row value is neither null
// nor numeric, falling back to the first key.
func SelectCategory(rows []*models.Record) (string, bool) {
	keys := firstKeys(rows)
	for _, k := range keys {
		v, _ := rows[0].Get(k)
		if v.Kind() == models.KindString && !numericCell(v) {
			return k, true
		}
	}
	if len(keys) > 0 {
		return keys[0], true
	}
	return "", false
}

func firstKeys(rows []*models.Record) []string {
	if len(rows) == 0 {
		return nil
	}
	return rows[0].Keys()
}

func numericCell(v models.Value) bool {
	switch v.Kind() {
	case models.KindNumber:
		f, _ := v.Num()
		return !math.IsNaN(f)
	case models.KindString:
		s, _ := v.Str()
		_, ok := schema.ParseNumber(s)
		return ok
	}
	return false
}
