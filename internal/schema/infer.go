// Package schema classifies the columns of a cleaned record sequence.
package schema

import (
	"fmt"

	"github.com/starford/tabula/internal/models"
)

// DefaultSampleSize bounds how many leading records are inspected.
const DefaultSampleSize = 500

// FilterableRatio is the distinct-to-total ratio below which a column is
// offered as a discrete filter.
const FilterableRatio = 0.8

// Discovery selects where column names come from.
type Discovery string

const (
	// DiscoverFirstRecord uses the keys of the first record only. Columns
	// that first appear in later records are not classified.
	DiscoverFirstRecord Discovery = "first_record"
	// DiscoverSampleUnion unions keys across the sample in first-seen order.
	DiscoverSampleUnion Discovery = "sample_union"
)

// Options tunes inference. The zero value uses DefaultSampleSize and
// DiscoverFirstRecord.
type Options struct {
	SampleSize int
	Discovery  Discovery
}

func (o Options) sampleSize() int {
	if o.SampleSize <= 0 {
		return DefaultSampleSize
	}
	return o.SampleSize
}

// Column is the inferred description of one field.
type Column struct {
	Name         string
	Type         string
	Filterable   bool
	UniqueValues int
}

// Infer classifies every discovered column of recs. It is a pure function
// and returns the same result for the same input.
func Infer(recs []*models.Record, opts Options) []Column {
	if len(recs) == 0 {
		return nil
	}
	sample := recs
	if n := opts.sampleSize(); len(sample) > n {
		sample = sample[:n]
	}

	names := discover(sample, opts.Discovery)
	cols := make([]Column, 0, len(names))
	for _, name := range names {
		values := make([]models.Value, 0, len(sample))
		for _, rec := range sample {
			if v, ok := rec.Get(name); ok && !v.IsNull() {
				values = append(values, v)
			}
		}
		unique := distinct(values)
		cols = append(cols, Column{
			Name:         name,
			Type:         Classify(values),
			Filterable:   float64(unique) < float64(len(recs))*FilterableRatio,
			UniqueValues: unique,
		})
	}
	return cols
}

// Classify applies the fixed priority chain number, date, boolean, string.
// An empty value list classifies as number.
func Classify(values []models.Value) string {
	switch {
	case all(values, IsNumeric):
		return models.ColumnNumber
	case all(values, IsDate):
		return models.ColumnDate
	case all(values, IsBoolean):
		return models.ColumnBoolean
	default:
		return models.ColumnString
	}
}

// Models converts inferred columns into persisted column records.
func Models(datasetID string, cols []Column) []models.Column {
	out := make([]models.Column, len(cols))
	for i, c := range cols {
		out[i] = models.Column{
			DatasetID:         datasetID,
			ColumnName:        c.Name,
			ColumnType:        c.Type,
			IsFilterable:      c.Filterable,
			UniqueValuesCount: c.UniqueValues,
		}
	}
	return out
}

func discover(sample []*models.Record, mode Discovery) []string {
	if mode != DiscoverSampleUnion {
		return sample[0].Keys()
	}
	seen := make(map[string]struct{})
	var names []string
	for _, rec := range sample {
		for _, k := range rec.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			names = append(names, k)
		}
	}
	return names
}

func all(values []models.Value, pred func(models.Value) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

// distinct counts values by kind and content, so "1" and 1 differ.
func distinct(values []models.Value) int {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[fmt.Sprintf("%d:%s", v.Kind(), v.Text())] = struct{}{}
	}
	return len(set)
}
