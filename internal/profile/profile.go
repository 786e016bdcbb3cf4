// Package profile implements a statistical Analyzer that describes a
// dataset sample without an external model.
package profile

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/schema"
)

// Insight types and impact levels.
const (
	TypeTrend        = "trend"
	TypeAnomaly      = "anomaly"
	TypeDistribution = "distribution"
	TypeOverview     = "overview"

	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// Profiler is a datasetservice.Analyzer backed by summary statistics.
type Profiler struct {
	// MaxInsights caps the insights of one report. Zero means 10.
	MaxInsights int
}

var _ datasetservice.Analyzer = (*Profiler)(nil)

// New returns a Profiler with default limits.
func New() *Profiler { return &Profiler{MaxInsights: 10} }

// NumericSummary holds the statistics of one numeric column.
type NumericSummary struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	StdDev   float64 `json:"stdDev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Outliers int     `json:"outliers"`
}

// Describe computes a NumericSummary. It fails on empty input.
func Describe(data []float64) (NumericSummary, error) {
	var s NumericSummary
	var err error
	s.Count = len(data)
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.StdDev, err = stats.StandardDeviation(data); err != nil {
		return s, err
	}
	if s.Min, err = stats.Min(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.Q25, err = stats.PercentileNearestRank(data, 25); err != nil {
		return s, err
	}
	if s.Q75, err = stats.PercentileNearestRank(data, 75); err != nil {
		return s, err
	}
	iqr := s.Q75 - s.Q25
	lo, hi := s.Q25-1.5*iqr, s.Q75+1.5*iqr
	for _, v := range data {
		if v < lo || v > hi {
			s.Outliers++
		}
	}
	return s, nil
}

// Analyze builds a report from the dataset columns and sample.
func (p *Profiler) Analyze(_ context.Context, in datasetservice.AnalysisInput) (models.AnalysisContent, error) {
	if in.Dataset == nil {
		return models.AnalysisContent{}, fmt.Errorf("profile: no dataset")
	}
	ds := in.Dataset
	content := models.AnalysisContent{
		Title:           "Analysis of " + ds.Name,
		BusinessMetrics: map[string]any{},
		Insights:        []models.Insight{},
		ProsAndCons:     models.ProsAndCons{Pros: []string{}, Cons: []string{}},
		Recommendations: []string{},
	}
	content.Summary = fmt.Sprintf("%s has %d rows and %d columns. %d leading rows were profiled.",
		ds.Name, ds.RowCount, ds.ColumnCount, len(in.Sample))
	if in.Context.Department != "" {
		content.Summary += fmt.Sprintf(" Prepared for the %s department.", in.Context.Department)
	}

	for _, col := range ds.Columns {
		missing := missingCount(in.Sample, col.ColumnName)
		if missing == 0 && len(in.Sample) > 0 {
			content.ProsAndCons.Pros = append(content.ProsAndCons.Pros,
				fmt.Sprintf("%s is populated in every sampled row", col.ColumnName))
		} else if missing > 0 {
			content.ProsAndCons.Cons = append(content.ProsAndCons.Cons,
				fmt.Sprintf("%s is missing in %d of %d sampled rows", col.ColumnName, missing, len(in.Sample)))
		}

		ins, metric, ok := p.columnInsight(in.Sample, col)
		if !ok {
			continue
		}
		if metric != nil {
			content.BusinessMetrics[col.ColumnName] = metric
		}
		content.Insights = append(content.Insights, ins)
	}

	sort.SliceStable(content.Insights, func(i, j int) bool {
		return impactRank(content.Insights[i].Impact) > impactRank(content.Insights[j].Impact)
	})
	if limit := p.maxInsights(); len(content.Insights) > limit {
		content.Insights = content.Insights[:limit]
	}
	for _, ins := range content.Insights {
		if ins.Impact != ImpactLow && ins.Recommendation != "" {
			content.Recommendations = append(content.Recommendations, ins.Recommendation)
		}
	}
	if len(content.ProsAndCons.Cons) > 0 {
		content.Recommendations = append(content.Recommendations,
			"Fill or drop incomplete columns before relying on aggregates")
	}
	return content, nil
}

// AnswerInsight answers question about the first column it mentions, or
// with a dataset overview when it names none.
func (p *Profiler) AnswerInsight(_ context.Context, in datasetservice.AnalysisInput, question string) (models.Insight, error) {
	if in.Dataset == nil {
		return models.Insight{}, fmt.Errorf("profile: no dataset")
	}
	q := strings.ToLower(question)
	for _, col := range in.Dataset.Columns {
		if !strings.Contains(q, strings.ToLower(col.ColumnName)) {
			continue
		}
		if ins, _, ok := p.columnInsight(in.Sample, col); ok {
			return ins, nil
		}
	}
	return models.Insight{
		ID:    uuid.NewString(),
		Title: question,
		Description: fmt.Sprintf("%s holds %d rows across %d columns.",
			in.Dataset.Name, in.Dataset.RowCount, in.Dataset.ColumnCount),
		Type:           TypeOverview,
		Impact:         ImpactLow,
		Recommendation: "Name a column in the question for a focused answer",
	}, nil
}

func (p *Profiler) maxInsights() int {
	if p.MaxInsights <= 0 {
		return 10
	}
	return p.MaxInsights
}

func (p *Profiler) columnInsight(sample []*models.Record, col models.Column) (models.Insight, any, bool) {
	switch col.ColumnType {
	case models.ColumnNumber:
		data := numbers(sample, col.ColumnName)
		if len(data) == 0 {
			return models.Insight{}, nil, false
		}
		sum, err := Describe(data)
		if err != nil {
			return models.Insight{}, nil, false
		}
		return numericInsight(col.ColumnName, sum), sum, true
	case models.ColumnString:
		if !col.IsFilterable {
			return models.Insight{}, nil, false
		}
		return categoryInsight(sample, col.ColumnName)
	default:
		return models.Insight{}, nil, false
	}
}

func numericInsight(name string, s NumericSummary) models.Insight {
	ins := models.Insight{
		ID:    uuid.NewString(),
		Title: "Distribution of " + name,
		Description: fmt.Sprintf("%s ranges from %s to %s with mean %s and median %s.",
			name, models.FormatNumber(round(s.Min)), models.FormatNumber(round(s.Max)),
			models.FormatNumber(round(s.Mean)), models.FormatNumber(round(s.Median))),
		Type:           TypeDistribution,
		Impact:         ImpactLow,
		Recommendation: fmt.Sprintf("Track %s against its median of %s", name, models.FormatNumber(round(s.Median))),
	}
	if s.Outliers > 0 {
		ins.Type = TypeAnomaly
		ins.Impact = ImpactMedium
		if float64(s.Outliers) > 0.05*float64(s.Count) {
			ins.Impact = ImpactHigh
		}
		ins.Description += fmt.Sprintf(" %d values fall outside the interquartile fences.", s.Outliers)
		ins.Recommendation = fmt.Sprintf("Review the %d outlying values of %s", s.Outliers, name)
	} else if s.Mean != 0 && math.Abs(s.Mean-s.Median)/math.Abs(s.Mean) > 0.25 {
		ins.Type = TypeTrend
		ins.Impact = ImpactMedium
		ins.Description += " The distribution is strongly skewed."
		ins.Recommendation = fmt.Sprintf("Prefer the median when reporting %s", name)
	}
	return ins
}

func categoryInsight(sample []*models.Record, name string) (models.Insight, any, bool) {
	counts := map[string]int{}
	var order []string
	total := 0
	for _, r := range sample {
		v, ok := r.Get(name)
		if !ok || v.IsNull() || v.Text() == "" {
			continue
		}
		k := v.Text()
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
		total++
	}
	if total == 0 {
		return models.Insight{}, nil, false
	}
	top := order[0]
	for _, k := range order[1:] {
		if counts[k] > counts[top] {
			top = k
		}
	}
	share := float64(counts[top]) / float64(total)
	ins := models.Insight{
		ID:    uuid.NewString(),
		Title: "Leading " + name,
		Description: fmt.Sprintf("%q is the most frequent %s at %s%% of %d sampled values across %d categories.",
			top, name, models.FormatNumber(round(share*100)), total, len(order)),
		Type:           TypeDistribution,
		Impact:         ImpactLow,
		Recommendation: fmt.Sprintf("Break results down by %s", name),
	}
	if share >= 0.5 && len(order) > 1 {
		ins.Impact = ImpactMedium
		ins.Recommendation = fmt.Sprintf("Check whether %q is expected to dominate %s", top, name)
	}
	metric := map[string]any{"categories": len(order), "top": top, "topShare": round(share)}
	return ins, metric, true
}

func numbers(sample []*models.Record, name string) []float64 {
	out := make([]float64, 0, len(sample))
	for _, r := range sample {
		v, ok := r.Get(name)
		if !ok {
			continue
		}
		if n, ok := v.Num(); ok && !math.IsNaN(n) && !math.IsInf(n, 0) {
			out = append(out, n)
			continue
		}
		if s, ok := v.Str(); ok {
			if n, ok := schema.ParseNumber(s); ok && !math.IsInf(n, 0) {
				out = append(out, n)
			}
		}
	}
	return out
}

func missingCount(sample []*models.Record, name string) int {
	n := 0
	for _, r := range sample {
		if v, ok := r.Get(name); !ok || v.IsNull() {
			n++
		}
	}
	return n
}

func impactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 2
	case ImpactMedium:
		return 1
	default:
		return 0
	}
}

func round(f float64) float64 {
	r, err := stats.Round(f, 2)
	if err != nil {
		return f
	}
	return r
}
