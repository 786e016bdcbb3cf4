package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/starford/tabula/internal/models"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"02-Jan-2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2006-01",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.ANSIC,
}

// ParseNumber parses s as a whole decimal number, ignoring surrounding
// whitespace. Go-only spellings such as "inf" or "NaN" are rejected;
// "Infinity" is accepted.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	switch strings.TrimLeft(s, "+-") {
	case "Infinity":
		f, _ := strconv.ParseFloat(strings.Replace(s, "Infinity", "Inf", 1), 64)
		return f, true
	}
	if !numericChars(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseLeadingNumber parses the longest numeric prefix of s, the way a
// lenient float reader does: "12px" is 12, "abc" fails.
func ParseLeadingNumber(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\f\v")
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		return ParseNumber(s[:i+len("Infinity")])
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return 0, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && isDigit(s[j]) {
			for j < len(s) && isDigit(s[j]) {
				j++
			}
			i = j
		}
	}
	f, err := strconv.ParseFloat(s[:i], 64)
	if err != nil {
		// out-of-range exponents still yield ±Inf or 0 from ParseFloat
		return f, !math.IsNaN(f)
	}
	return f, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func numericChars(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c == '.', c == '-', c == '+', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return true
}

// ParseDate parses s against the accepted calendar date layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsNumeric reports whether v is a Number or a string holding one.
// The empty string counts as numeric.
func IsNumeric(v models.Value) bool {
	switch v.Kind() {
	case models.KindNumber:
		return true
	case models.KindString:
		s, _ := v.Str()
		if s == "" {
			return true
		}
		_, ok := ParseNumber(s)
		return ok
	default:
		return false
	}
}

// IsDate reports whether v is a Date or a string holding a calendar date.
// The empty string counts as a date.
func IsDate(v models.Value) bool {
	switch v.Kind() {
	case models.KindDate:
		return true
	case models.KindString:
		s, _ := v.Str()
		if s == "" {
			return true
		}
		_, ok := ParseDate(s)
		return ok
	default:
		return false
	}
}

// IsBoolean reports whether v is a Bool or one of true, false, yes, no,
// 0 and 1 in any letter case.
func IsBoolean(v models.Value) bool {
	switch v.Kind() {
	case models.KindBool:
		return true
	case models.KindString, models.KindNumber:
		switch strings.ToLower(v.Text()) {
		case "true", "false", "yes", "no", "0", "1":
			return true
		}
	}
	return false
}
