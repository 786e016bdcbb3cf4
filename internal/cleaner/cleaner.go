// Package cleaner normalises parsed records before schema inference.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/starford/tabula/internal/models"
)

// RE2's \s is ASCII only; headers exported from spreadsheets often carry
// no-break and other Unicode spaces.
const spaceClass = `\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}`

var (
	nonWord    = regexp.MustCompile(`[^\w` + spaceClass + `]`)
	whitespace = regexp.MustCompile(`[` + spaceClass + `]+`)
)

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// Key rewrites a raw header into a column name: trimmed, stripped of
// punctuation, with whitespace runs replaced by a single underscore.
func Key(raw string) string {
	k := nonWord.ReplaceAllString(strings.TrimFunc(raw, isSpace), "")
	return whitespace.ReplaceAllString(k, "_")
}

// Record returns a cleaned copy of rec, or nil when no field survives.
// Null values and blank or "null" strings are dropped. Keys that clean to
// the empty string are dropped too. When two raw keys clean to the same
// name the first position is kept and the later value wins.
func Record(rec *models.Record) *models.Record {
	out := models.NewRecord(rec.Len())
	for _, f := range rec.Fields() {
		v := f.Value
		if v.IsNull() {
			continue
		}
		if s, ok := v.Str(); ok {
			s = strings.TrimSpace(s)
			if s == "" || strings.EqualFold(s, "null") {
				continue
			}
			v = models.String(s)
		}
		key := Key(f.Key)
		if key == "" {
			continue
		}
		out.Set(key, v)
	}
	if out.Len() == 0 {
		return nil
	}
	return out
}

// Clean applies Record to every input, dropping records left empty.
// Input order is preserved.
func Clean(recs []*models.Record) []*models.Record {
	out := make([]*models.Record, 0, len(recs))
	for _, rec := range recs {
		if c := Record(rec); c != nil {
			out = append(out, c)
		}
	}
	return out
}
