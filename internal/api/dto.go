package api

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tabula/internal/chart"
	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/models"
)

// Response messages.
const (
	msgUploaded        = "File uploaded and processed successfully"
	msgDeleted         = "Dataset deleted successfully"
	msgAnalysis        = "Analysis generated successfully"
	msgInsightUpdated  = "Insight updated successfully"
	msgInsightDeleted  = "Insight deleted successfully"
	maxPromptLength    = 4000
	maxQuestionLength  = 2000
	defaultPage        = 1
	filtersParamPrefix = "filters["
)

// UploadResponse is returned after a file was ingested.
type UploadResponse struct {
	Message   string                 `json:"message" validate:"required"`
	DatasetID string                 `json:"datasetId" example:"6f1c..." validate:"required"`
	Summary   datasetservice.Summary `json:"summary" validate:"required"`
}

// MessageResponse carries a confirmation.
type MessageResponse struct {
	Message string `json:"message" validate:"required"`
}

// AnalysisResponse wraps a freshly generated analysis.
type AnalysisResponse struct {
	Message  string           `json:"message" validate:"required"`
	Analysis *models.Analysis `json:"analysis" validate:"required"`
}

// ContentResponse wraps analysis content after an insight edit.
type ContentResponse struct {
	Message string                 `json:"message" validate:"required"`
	Content models.AnalysisContent `json:"content" validate:"required"`
}

// GenerateAnalysisRequest is the optional body of an analysis request.
type GenerateAnalysisRequest struct {
	CustomPrompt string                 `json:"customPrompt"`
	Context      models.AnalysisContext `json:"context"`
}

// Validate implements validation.Validatable.
func (r GenerateAnalysisRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CustomPrompt, validation.Length(0, maxPromptLength)),
	)
}

// UpdateInsightRequest carries the question an insight should answer.
type UpdateInsightRequest struct {
	Content string `json:"content" example:"Why did sales drop in Q3?" validate:"required"`
}

// Validate implements validation.Validatable.
func (r UpdateInsightRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, maxQuestionLength)),
	)
}

// pageQuery holds the pagination parameters of GET /data/{id}/data.
type pageQuery struct {
	Page  int
	Limit int
}

// parsePageQuery reads page and limit. Missing values take their defaults;
// values that are not integers are rejected.
func parsePageQuery(q url.Values) (pageQuery, error) {
	p := pageQuery{Page: defaultPage, Limit: datasetservice.DefaultPageSize}
	errs := validation.Errors{}
	if s := q.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs["page"] = errors.New("must be an integer")
		}
		p.Page = n
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			errs["limit"] = errors.New("must be an integer")
		}
		p.Limit = n
	}
	return p, errs.Filter()
}

var chartKinds = func() []any {
	out := make([]any, len(chart.Kinds))
	for i, k := range chart.Kinds {
		out[i] = string(k)
	}
	return out
}()

// parseChartRequest builds a chart request from the route's chart type and
// its xAxis, yAxis and filters[column] query parameters.
func parseChartRequest(kind string, q url.Values) (datasetservice.ChartRequest, error) {
	err := validation.Errors{
		"chartType": validation.Validate(kind, validation.Required, validation.In(chartKinds...)),
	}.Filter()
	if err != nil {
		return datasetservice.ChartRequest{}, err
	}

	req := datasetservice.ChartRequest{
		Kind:    chart.Kind(kind),
		XAxis:   q.Get("xAxis"),
		YAxis:   q.Get("yAxis"),
		Filters: map[string]string{},
	}
	for key, vals := range q {
		col, ok := strings.CutPrefix(key, filtersParamPrefix)
		if !ok || !strings.HasSuffix(col, "]") || len(vals) == 0 {
			continue
		}
		req.Filters[strings.TrimSuffix(col, "]")] = vals[0]
	}
	return req, nil
}
