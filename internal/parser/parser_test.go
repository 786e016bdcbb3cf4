package parser

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/models"
)

func TestKindFromFilename(t *testing.T) {
	cases := map[string]Kind{
		"sales.csv":     KindCSV,
		"Report.XLSX":   KindXLSX,
		"legacy.v2.xls": KindXLS,
	}
	for name, want := range cases {
		got, err := KindFromFilename(name)
		if err != nil {
			t.Fatalf("KindFromFilename(%q): %v", name, err)
		}
		if got != want {
			t.Errorf("KindFromFilename(%q) = %q, want %q", name, got, want)
		}
	}

	_, err := KindFromFilename("notes.txt")
	if !errors.Is(err, apperr.ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestParseCSV_HeaderAndRaggedRows(t *testing.T) {
	input := "\ufeffregion,sales,note\nNorth,10,ok\nSouth,5\nEast,7,x,extra\n"
	recs, err := Parse(strings.NewReader(input), KindCSV)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, []string{"region", "sales", "note"}, recs[0].Keys())
	v, _ := recs[0].Get("sales")
	s, ok := v.Str()
	require.True(t, ok, "csv cells stay strings")
	assert.Equal(t, "10", s)

	assert.Equal(t, []string{"region", "sales"}, recs[1].Keys())
	assert.Equal(t, []string{"region", "sales", "note", "_3"}, recs[2].Keys())
}

func TestParseCSV_HeaderOnly(t *testing.T) {
	recs, err := Parse(strings.NewReader("a,b\n"), KindCSV)
	require.NoError(t, err)
	assert.Empty(t, recs)

	recs, err = Parse(strings.NewReader(""), KindCSV)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseXLSX_TypedCellsAndHeaders(t *testing.T) {
	f := excelize.NewFile()
	sheet := "Sheet1"
	set := func(cell string, v any) {
		require.NoError(t, f.SetCellValue(sheet, cell, v))
	}
	set("A1", "name")
	set("C1", "score")
	set("D1", "score")
	set("E1", "active")

	set("A2", "alice")
	set("B2", "left")
	set("C2", 12.5)
	set("D2", 3)
	set("E2", true)

	// row 3 blank, row 4 partially filled
	set("A4", "bob")
	set("E4", false)

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recs, err := Parse(bytes.NewReader(buf.Bytes()), KindXLSX)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"name", "__EMPTY", "score", "score_1", "active"}, recs[0].Keys())

	v, _ := recs[0].Get("score")
	n, ok := v.Num()
	require.True(t, ok)
	assert.Equal(t, 12.5, n)

	v, _ = recs[0].Get("active")
	b, ok := v.Boolean()
	require.True(t, ok)
	assert.True(t, b)

	assert.Equal(t, []string{"name", "active"}, recs[1].Keys())
	v, _ = recs[1].Get("active")
	assert.True(t, v.Equal(models.Bool(false)))
}

func TestParseXLS_FirstSheet(t *testing.T) {
	// regions.xls: sheet "Data" has an empty first row, headers
	// Region | (blank) | Sales | Region, then north/x/10/n2, a missing row,
	// south/-/2.5/- and a row record without cells. Sheet "Other" holds a
	// single "ignored" cell.
	data, err := os.ReadFile("testdata/regions.xls")
	require.NoError(t, err)

	recs, err := ParseBytes(data, KindXLS)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, []string{"Region", "__EMPTY", "Sales", "Region_1"}, recs[0].Keys())
	for key, want := range map[string]string{"Region": "north", "__EMPTY": "x", "Sales": "10", "Region_1": "n2"} {
		v, ok := recs[0].Get(key)
		require.True(t, ok, key)
		assert.True(t, v.Equal(models.String(want)), "%s = %v", key, v)
	}

	assert.Equal(t, []string{"Region", "Sales"}, recs[1].Keys())
	v, _ := recs[1].Get("Sales")
	assert.True(t, v.Equal(models.String("2.5")))

	for _, r := range recs {
		for _, k := range r.Keys() {
			v, _ := r.Get(k)
			assert.False(t, v.Equal(models.String("ignored")), "second sheet must not be read")
		}
	}
}

func TestParse_CorruptWorkbooks(t *testing.T) {
	cases := map[Kind]string{
		KindXLSX: "this is not a zip archive",
		KindXLS:  "this is not an OLE2 document",
	}
	for kind, body := range cases {
		_, err := ParseBytes([]byte(body), kind)
		assert.ErrorIs(t, err, apperr.ErrInvalidFile, "kind %s", kind)
	}
}

func TestSheetHeaders(t *testing.T) {
	got := sheetHeaders([]string{"", "a", "", "a", "a"})
	want := []string{"__EMPTY", "a", "__EMPTY_1", "a_1", "a_2"}
	assert.Equal(t, want, got)
}

func TestParse_UnknownKind(t *testing.T) {
	_, err := Parse(strings.NewReader("x"), Kind("ods"))
	assert.ErrorIs(t, err, apperr.ErrUnsupportedFormat)
}
