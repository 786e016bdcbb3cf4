package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies which member of the Value union is set.
type Kind uint8

// Value kinds.
const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	default:
		return "null"
	}
}

// Value is a single scalar cell: String, Number, Date, Bool or Null.
// The zero Value is Null.
type Value struct {
	kind Kind
	str  string
	num  float64
	date time.Time
	b    bool
}

// Null returns the null Value.
func Null() Value { return Value{} }

// String returns a textual Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a numeric Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Date returns a date Value.
func Date(t time.Time) Value { return Value{kind: KindDate, date: t} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind reports the member of the union held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the text of a String value.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Num returns the number of a Number value.
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }

// Time returns the time of a Date value.
func (v Value) Time() (time.Time, bool) { return v.date, v.kind == KindDate }

// Boolean returns the flag of a Bool value.
func (v Value) Boolean() (bool, bool) { return v.b, v.kind == KindBool }

// Text renders v the way it is shown in chart labels and filters.
// Null renders as the empty string.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return FormatNumber(v.num)
	case KindDate:
		return v.date.UTC().Format(time.RFC3339)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Any converts v to a plain Go value (nil, string, float64, time.Time or bool).
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindDate:
		return v.date
	case KindBool:
		return v.b
	default:
		return nil
	}
}

// Equal reports whether v and o hold the same kind and the same content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindDate:
		return v.date.Equal(o.date)
	case KindBool:
		return v.b == o.b
	default:
		return true
	}
}

// FromAny converts a decoded scalar into a Value. Unsupported types are
// rendered with fmt and stored as String.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return Number(f)
		}
		return String(t.String())
	case time.Time:
		return Date(t)
	default:
		return String(fmt.Sprint(t))
	}
}

// MarshalJSON encodes Date values as RFC 3339 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber && (math.IsNaN(v.num) || math.IsInf(v.num, 0)) {
		return []byte("null"), nil
	}
	if v.kind == KindDate {
		return json.Marshal(v.date.UTC().Format(time.RFC3339Nano))
	}
	return json.Marshal(v.Any())
}

// UnmarshalJSON decodes a JSON scalar. Strings stay strings, so Date values
// read back from JSON storage become String values.
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	if err := json.Unmarshal(data, &x); err != nil {
		return err
	}
	switch x.(type) {
	case nil, string, bool, float64:
		*v = FromAny(x)
		return nil
	default:
		return fmt.Errorf("models: value must be a JSON scalar, got %s", data)
	}
}

// FormatNumber renders f without exponent or trailing zeros for ordinary
// magnitudes, matching how numbers are labelled in charts.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
