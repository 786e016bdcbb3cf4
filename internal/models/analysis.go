package models

import "time"

// Analysis is a generated report attached to a dataset.
type Analysis struct {
	ID           string          `json:"id"`
	DatasetID    string          `json:"dataset_id"`
	Title        string          `json:"title"`
	Content      AnalysisContent `json:"content"`
	CustomPrompt string          `json:"custom_prompt,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AnalysisContent is the structured body of a report.
type AnalysisContent struct {
	Title           string         `json:"title" bson:"title"`
	Summary         string         `json:"summary" bson:"summary"`
	Insights        []Insight      `json:"insights" bson:"insights"`
	BusinessMetrics map[string]any `json:"businessMetrics,omitempty" bson:"businessMetrics,omitempty"`
	ProsAndCons     ProsAndCons    `json:"prosAndCons" bson:"prosAndCons"`
	Recommendations []string       `json:"recommendations" bson:"recommendations"`
}

// Insight is one finding inside a report.
type Insight struct {
	ID             string `json:"id" bson:"id"`
	Title          string `json:"title" bson:"title"`
	Description    string `json:"description" bson:"description"`
	Type           string `json:"type" bson:"type"`
	Impact         string `json:"impact" bson:"impact"`
	Recommendation string `json:"recommendation" bson:"recommendation"`
}

// ProsAndCons lists strengths and weaknesses called out by a report.
type ProsAndCons struct {
	Pros []string `json:"pros" bson:"pros"`
	Cons []string `json:"cons" bson:"cons"`
}

// AnalysisContext carries the audience a report is written for.
type AnalysisContext struct {
	DatasetType   string   `json:"datasetType"`
	Department    string   `json:"department"`
	AnalysisNeeds []string `json:"analysisNeeds"`
}
