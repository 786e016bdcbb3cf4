package cleaner

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/tabula/internal/models"
)

func TestKey(t *testing.T) {
	cases := map[string]string{
		"  Total Sales ($) ": "Total_Sales_",
		"Region":             "Region",
		"a - b":              "a_b",
		"unit\tprice":        "unit_price",
		"%%%":                "",
	}
	for raw, want := range cases {
		if got := Key(raw); got != want {
			t.Errorf("Key(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestKey_UnicodeWhitespace(t *testing.T) {
	cases := map[string]string{
		"Total\u00a0Sales":       "Total_Sales",
		"Unit\vPrice":            "Unit_Price",
		"Net\u2003Margin":        "Net_Margin",
		"\ufeffRegion":           "Region",
		"\u00a0Cost \u00a0(EUR)": "Cost_EUR",
	}
	for raw, want := range cases {
		if got := Key(raw); got != want {
			t.Errorf("Key(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestRecord_DropsBlankAndNullValues(t *testing.T) {
	rec := models.RecordOf(
		" Name ", "  Widget ",
		"Note", "NULL",
		"Empty", "   ",
		"Missing", nil,
		"Price", 9.5,
		"Flag", false,
	)
	got := Record(rec)
	require.NotNil(t, got)
	assert.Equal(t, []string{"Name", "Price", "Flag"}, got.Keys())

	v, _ := got.Get("Name")
	assert.True(t, v.Equal(models.String("Widget")))
	v, _ = got.Get("Flag")
	assert.True(t, v.Equal(models.Bool(false)), "false is a value, not a blank")
}

func TestRecord_CollidingKeysKeepFirstPositionLastValue(t *testing.T) {
	rec := models.RecordOf("a b", "1", "z", "2", "a  b!", "3")
	got := Record(rec)
	require.NotNil(t, got)
	assert.Equal(t, []string{"a_b", "z"}, got.Keys())
	v, _ := got.Get("a_b")
	s, _ := v.Str()
	assert.Equal(t, "3", s)
}

func TestClean_DropsEmptyRecordsAndKeepsOrder(t *testing.T) {
	in := []*models.Record{
		models.RecordOf("x", "1"),
		models.RecordOf("x", "", "y", "null"),
		models.RecordOf("x", "3"),
	}
	out := Clean(in)
	require.Len(t, out, 2)
	v, _ := out[1].Get("x")
	s, _ := v.Str()
	assert.Equal(t, "3", s)
}

func TestClean_KeysAreWordCharacters(t *testing.T) {
	valid := regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	in := []*models.Record{
		models.RecordOf("Order #", "1", "Ship-To City", "Oslo", "???", "x", "  spaced  out  ", "y"),
	}
	for _, rec := range Clean(in) {
		for _, k := range rec.Keys() {
			assert.Regexp(t, valid, k)
		}
	}
}
