// Package datasetservice coordinates ingestion, reads and analyses of
// datasets on top of a datastore.Store.
package datasetservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/tabula/internal/chart"
	"github.com/starford/tabula/internal/datastore"
	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/schema"
)

// Event types published to a Notifier.
const (
	EventDatasetCreated = "dataset.created"
	EventDatasetDeleted = "dataset.deleted"
)

// Event describes a change to the set of datasets.
type Event struct {
	Type      string `json:"type"`
	DatasetID string `json:"dataset_id"`
	Name      string `json:"name,omitempty"`
}

// Notifier receives dataset events. Notify must not block.
type Notifier interface {
	Notify(ev Event)
}

// Service coordinates parsing, inference and persistence.
type Service struct {
	store    datastore.Store
	schema   schema.Options
	analyzer Analyzer
	notifier Notifier
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSchemaOptions sets the inference sample size and column discovery mode.
func WithSchemaOptions(o schema.Options) Option {
	return func(s *Service) { s.schema = o }
}

// WithAnalyzer enables analysis generation.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithNotifier sets the receiver of dataset events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger. slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a dataset service backed by store.
func New(store datastore.Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) notify(typ, id, name string) {
	if s.notifier != nil {
		s.notifier.Notify(Event{Type: typ, DatasetID: id, Name: name})
	}
}

// GetDatasetByID returns a dataset with its columns.
func (s *Service) GetDatasetByID(ctx context.Context, id string) (*models.Dataset, error) {
	return s.store.GetDataset(ctx, id)
}

// GetDatasetData returns every row of a dataset in row order. Unknown ids
// fail with apperr.ErrNotFound.
func (s *Service) GetDatasetData(ctx context.Context, id string) ([]*models.Record, error) {
	if _, err := s.store.GetDataset(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetRows(ctx, id)
}

// GetAllDatasets lists completed datasets, newest first.
func (s *Service) GetAllDatasets(ctx context.Context) ([]models.Dataset, error) {
	out, err := s.store.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Dataset{}
	}
	return out, nil
}

// DeleteDataset removes a dataset and everything that belongs to it.
func (s *Service) DeleteDataset(ctx context.Context, id string) error {
	if err := s.store.DeleteDataset(ctx, id); err != nil {
		return err
	}
	s.logger.Info("dataset deleted", slog.String("dataset_id", id))
	s.notify(EventDatasetDeleted, id, "")
	return nil
}

// GetDatasetPage returns one page of rows.
func (s *Service) GetDatasetPage(ctx context.Context, id string, page, limit int) (*Page, error) {
	rows, err := s.GetDatasetData(ctx, id)
	if err != nil {
		return nil, err
	}
	p := Paginate(rows, page, limit)
	return &p, nil
}

// MaxSampleRows caps SampleRows.
const MaxSampleRows = 100

// SampleRows returns up to limit leading rows, capped at MaxSampleRows.
func (s *Service) SampleRows(ctx context.Context, id string, limit int) ([]*models.Record, error) {
	if limit <= 0 || limit > MaxSampleRows {
		limit = MaxSampleRows
	}
	if _, err := s.store.GetDataset(ctx, id); err != nil {
		return nil, err
	}
	return s.store.SampleRows(ctx, id, limit)
}

// ChartRequest selects a chart over a dataset.
type ChartRequest struct {
	Kind    chart.Kind
	XAxis   string
	YAxis   string
	Filters map[string]string
}

// ChartData loads a dataset, applies the row filters and aggregates it.
func (s *Service) ChartData(ctx context.Context, id string, req ChartRequest) (chart.Result, error) {
	rows, err := s.GetDatasetData(ctx, id)
	if err != nil {
		return chart.Result{}, fmt.Errorf("chart data: %w", err)
	}
	rows = chart.ApplyFilters(rows, req.Filters)
	return chart.Generate(rows, req.Kind, req.XAxis, req.YAxis), nil
}
