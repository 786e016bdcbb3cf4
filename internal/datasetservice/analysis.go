package datasetservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/models"
)

// AnalysisSampleRows is the number of leading rows handed to an Analyzer.
const AnalysisSampleRows = 100

// StatusAnalysisCompleted marks a stored analysis.
const StatusAnalysisCompleted = "completed"

// AnalysisInput is what an Analyzer sees of a dataset.
type AnalysisInput struct {
	Dataset      *models.Dataset
	Sample       []*models.Record
	Context      models.AnalysisContext
	CustomPrompt string
}

// Analyzer produces report content for a dataset.
type Analyzer interface {
	// Analyze writes a full report.
	Analyze(ctx context.Context, in AnalysisInput) (models.AnalysisContent, error)
	// AnswerInsight writes a single insight answering question.
	AnswerInsight(ctx context.Context, in AnalysisInput, question string) (models.Insight, error)
}

// AnalysisRequest carries the caller-supplied part of an AnalysisInput.
type AnalysisRequest struct {
	CustomPrompt string                 `json:"customPrompt"`
	Context      models.AnalysisContext `json:"context"`
}

func (s *Service) analysisInput(ctx context.Context, datasetID string, req AnalysisRequest) (AnalysisInput, error) {
	ds, err := s.store.GetDataset(ctx, datasetID)
	if err != nil {
		return AnalysisInput{}, err
	}
	sample, err := s.store.SampleRows(ctx, datasetID, AnalysisSampleRows)
	if err != nil {
		return AnalysisInput{}, err
	}
	return AnalysisInput{
		Dataset:      ds,
		Sample:       sample,
		Context:      req.Context,
		CustomPrompt: req.CustomPrompt,
	}, nil
}

// GenerateAnalysis runs the configured Analyzer over a dataset sample and
// stores the report.
func (s *Service) GenerateAnalysis(ctx context.Context, datasetID string, req AnalysisRequest) (*models.Analysis, error) {
	if s.analyzer == nil {
		return nil, apperr.ErrAnalyzerUnavailable
	}
	in, err := s.analysisInput(ctx, datasetID, req)
	if err != nil {
		return nil, err
	}
	content, err := s.analyzer.Analyze(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("analysis: generate: %w", err)
	}

	a := models.Analysis{
		DatasetID:    datasetID,
		Title:        content.Title,
		Content:      content,
		CustomPrompt: req.CustomPrompt,
		Status:       StatusAnalysisCompleted,
	}
	if a.Title == "" {
		a.Title = "Analysis of " + in.Dataset.Name
	}
	id, err := s.store.SaveAnalysis(ctx, a)
	if err != nil {
		return nil, err
	}
	s.logger.Info("analysis generated",
		slog.String("dataset_id", datasetID),
		slog.String("analysis_id", id),
		slog.Int("insights", len(content.Insights)),
	)
	return s.store.GetAnalysis(ctx, id)
}

// GetAnalysis returns one stored analysis.
func (s *Service) GetAnalysis(ctx context.Context, id string) (*models.Analysis, error) {
	return s.store.GetAnalysis(ctx, id)
}

// ListAnalyses returns the analyses of a dataset, newest first.
func (s *Service) ListAnalyses(ctx context.Context, datasetID string) ([]models.Analysis, error) {
	if _, err := s.store.GetDataset(ctx, datasetID); err != nil {
		return nil, err
	}
	out, err := s.store.ListAnalyses(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Analysis{}
	}
	return out, nil
}

// UpdateInsight replaces one insight with a fresh answer to question. The
// insight keeps its id and takes question as its title.
func (s *Service) UpdateInsight(ctx context.Context, analysisID, insightID, question string) (models.AnalysisContent, error) {
	if s.analyzer == nil {
		return models.AnalysisContent{}, apperr.ErrAnalyzerUnavailable
	}
	a, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return models.AnalysisContent{}, err
	}
	idx := insightIndex(a.Content.Insights, insightID)
	if idx < 0 {
		return models.AnalysisContent{}, fmt.Errorf("insight %s: %w", insightID, apperr.ErrNotFound)
	}

	in, err := s.analysisInput(ctx, a.DatasetID, AnalysisRequest{CustomPrompt: a.CustomPrompt})
	if err != nil {
		return models.AnalysisContent{}, err
	}
	ins, err := s.analyzer.AnswerInsight(ctx, in, question)
	if err != nil {
		return models.AnalysisContent{}, fmt.Errorf("analysis: answer insight: %w", err)
	}
	ins.ID = insightID
	ins.Title = question

	content := a.Content
	content.Insights = append([]models.Insight(nil), a.Content.Insights...)
	content.Insights[idx] = ins
	if err := s.store.UpdateAnalysisContent(ctx, analysisID, content); err != nil {
		return models.AnalysisContent{}, err
	}
	return content, nil
}

// DeleteInsight removes one insight from an analysis.
func (s *Service) DeleteInsight(ctx context.Context, analysisID, insightID string) (models.AnalysisContent, error) {
	a, err := s.store.GetAnalysis(ctx, analysisID)
	if err != nil {
		return models.AnalysisContent{}, err
	}
	idx := insightIndex(a.Content.Insights, insightID)
	if idx < 0 {
		return models.AnalysisContent{}, fmt.Errorf("insight %s: %w", insightID, apperr.ErrNotFound)
	}

	content := a.Content
	content.Insights = make([]models.Insight, 0, len(a.Content.Insights)-1)
	content.Insights = append(content.Insights, a.Content.Insights[:idx]...)
	content.Insights = append(content.Insights, a.Content.Insights[idx+1:]...)
	if err := s.store.UpdateAnalysisContent(ctx, analysisID, content); err != nil {
		return models.AnalysisContent{}, err
	}
	return content, nil
}

func insightIndex(list []models.Insight, id string) int {
	for i, ins := range list {
		if ins.ID == id {
			return i
		}
	}
	return -1
}
