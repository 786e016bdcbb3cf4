// Package chart aggregates dataset rows into chart series.
//
// Every function here is pure: it reads the rows it is given and allocates
// a fresh result, so callers may share rows across goroutines.
package chart

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/schema"
)

// Kind is a chart type.
type Kind string

const (
	Bar  Kind = "bar"
	Line Kind = "line"
	Area Kind = "area"
	Pie  Kind = "pie"
)

// Kinds lists every supported chart type.
var Kinds = []Kind{Bar, Line, Area, Pie}

// Valid reports whether k is a supported chart type.
func (k Kind) Valid() bool {
	switch k {
	case Bar, Line, Area, Pie:
		return true
	}
	return false
}

const (
	// MaxXYPoints caps the series of bar, line and area charts.
	MaxXYPoints = 20
	// MaxPieSlices caps the slices of a pie chart.
	MaxPieSlices = 10
	// UnknownLabel stands in for a missing category.
	UnknownLabel = "Unknown"
)

// Point is one aggregated category. XY points encode as {x,y,name,value},
// pie slices as {name,value}.
type Point struct {
	Name  string
	Value float64
	xy    bool
}

func (p Point) MarshalJSON() ([]byte, error) {
	if p.xy {
		return json.Marshal(struct {
			X     string `json:"x"`
			Y     number `json:"y"`
			Name  string `json:"name"`
			Value number `json:"value"`
		}{p.Name, number(p.Value), p.Name, number(p.Value)})
	}
	return json.Marshal(struct {
		Name  string `json:"name"`
		Value number `json:"value"`
	}{p.Name, number(p.Value)})
}

// number encodes NaN and infinities as null, like JSON.stringify.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// Summary describes a Result. Axis fields carry the columns actually used,
// including auto-selected ones.
type Summary struct {
	Total          float64  `json:"total"`
	Categories     int      `json:"categories,omitempty"`
	XAxis          string   `json:"xAxis,omitempty"`
	YAxis          string   `json:"yAxis,omitempty"`
	CategoryColumn string   `json:"categoryColumn,omitempty"`
	Average        *float64 `json:"average,omitempty"`
}

func (s Summary) MarshalJSON() ([]byte, error) {
	type plain Summary
	out := struct {
		plain
		Total   number  `json:"total"`
		Average *number `json:"average,omitempty"`
	}{plain: plain(s), Total: number(s.Total)}
	if s.Average != nil {
		avg := number(*s.Average)
		out.Average = &avg
	}
	return json.Marshal(out)
}

// Result is a chart series plus its summary.
type Result struct {
	Data    []Point `json:"data"`
	Summary Summary `json:"summary"`
}

func empty() Result {
	return Result{Data: []Point{}}
}

// Generate aggregates rows for kind. For pie charts xAxis names the
// category column and yAxis is ignored. Empty input and unknown kinds
// yield an empty series with a zero total.
func Generate(rows []*models.Record, kind Kind, xAxis, yAxis string) Result {
	if len(rows) == 0 {
		return empty()
	}
	switch kind {
	case Bar, Line, Area:
		return xy(rows, xAxis, yAxis)
	case Pie:
		return pie(rows, xAxis)
	default:
		return empty()
	}
}

func xy(rows []*models.Record, xAxis, yAxis string) Result {
	if xAxis == "" {
		xAxis, _ = SelectXAxis(rows)
	}
	if yAxis == "" {
		yAxis, _ = SelectYAxis(rows)
	}

	g := newGroups()
	for _, row := range rows {
		g.add(label(row, xAxis), yNumber(row, yAxis))
	}
	points := g.top(MaxXYPoints, true)

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	res := Result{Data: points, Summary: Summary{
		Categories: len(points),
		XAxis:      xAxis,
		YAxis:      yAxis,
	}}
	if total, err := stats.Sum(values); err == nil {
		res.Summary.Total = total
	}
	if mean, err := stats.Mean(values); err == nil {
		res.Summary.Average = &mean
	}
	return res
}

func pie(rows []*models.Record, category string) Result {
	if category == "" {
		category, _ = SelectCategory(rows)
	}
	g := newGroups()
	for _, row := range rows {
		g.add(label(row, category), 1)
	}
	points := g.top(MaxPieSlices, false)
	return Result{Data: points, Summary: Summary{
		Total:          float64(len(rows)),
		Categories:     len(points),
		CategoryColumn: category,
	}}
}

// label stringifies the category of row; missing, null and blank values
// become UnknownLabel.
func label(row *models.Record, col string) string {
	v, ok := row.Get(col)
	if !ok {
		return UnknownLabel
	}
	s := v.Text()
	if s == "" {
		return UnknownLabel
	}
	return s
}

// yNumber reads the leading number of the Y cell; anything else counts as 0.
func yNumber(row *models.Record, col string) float64 {
	v, ok := row.Get(col)
	if !ok {
		return 0
	}
	var f float64
	switch v.Kind() {
	case models.KindNumber:
		f, _ = v.Num()
	case models.KindString:
		s, _ := v.Str()
		f, _ = schema.ParseLeadingNumber(s)
	}
	if math.IsNaN(f) {
		return 0
	}
	return f
}

// groups accumulates per-label totals in first-seen order.
type groups struct {
	order []string
	sums  map[string]float64
}

func newGroups() *groups {
	return &groups{sums: make(map[string]float64)}
}

func (g *groups) add(key string, v float64) {
	if _, ok := g.sums[key]; !ok {
		g.order = append(g.order, key)
	}
	g.sums[key] += v
}

// top returns the n largest groups, ties kept in first-seen order.
func (g *groups) top(n int, xy bool) []Point {
	points := make([]Point, len(g.order))
	for i, k := range g.order {
		points[i] = Point{Name: k, Value: g.sums[k], xy: xy}
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Value > points[j].Value })
	if len(points) > n {
		points = points[:n]
	}
	return points
}

// ApplyFilters keeps rows whose value for every filter column contains the
// filter value, ignoring case. Empty values and "all" match everything.
// Missing cells compare as the empty string.
func ApplyFilters(rows []*models.Record, filters map[string]string) []*models.Record {
	active := make(map[string]string, len(filters))
	for col, want := range filters {
		if want == "" || want == "all" {
			continue
		}
		active[col] = strings.ToLower(want)
	}
	if len(active) == 0 {
		return rows
	}

	out := make([]*models.Record, 0, len(rows))
	for _, row := range rows {
		keep := true
		for col, want := range active {
			v, _ := row.Get(col)
			if !strings.Contains(strings.ToLower(v.Text()), want) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}
