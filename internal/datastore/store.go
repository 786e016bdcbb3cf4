// Package datastore defines the persistence contract for datasets, their
// columns, rows and analyses.
package datastore

import (
	"context"

	"github.com/starford/tabula/internal/models"
)

// Store persists datasets. Implementations live in sqlitestore and
// mongostore; consumers depend on this interface only.
//
// Lookups of missing entities fail with apperr.ErrNotFound. Backend
// failures are reported as *apperr.StoreError.
type Store interface {
	// CreateDataset inserts meta with status completed and the current time
	// as upload date, and returns the new id.
	CreateDataset(ctx context.Context, meta models.Dataset) (string, error)
	// SaveColumns bulk-inserts columns for datasetID in the given order.
	SaveColumns(ctx context.Context, datasetID string, cols []models.Column) error
	// SaveRows bulk-inserts records, assigning row_index by position.
	SaveRows(ctx context.Context, datasetID string, recs []*models.Record) error

	// GetDataset returns the dataset with its columns in insertion order.
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)
	// GetRows returns every row payload ordered by row index.
	GetRows(ctx context.Context, datasetID string) ([]*models.Record, error)
	// SampleRows returns at most limit leading row payloads.
	SampleRows(ctx context.Context, datasetID string, limit int) ([]*models.Record, error)
	// ListDatasets returns completed datasets, newest first.
	ListDatasets(ctx context.Context) ([]models.Dataset, error)
	// FindByChecksum returns the newest dataset ingested from content with
	// the given checksum.
	FindByChecksum(ctx context.Context, checksum string) (*models.Dataset, error)

	// DeleteDataset removes rows, columns and analyses, then the dataset.
	// The steps are sequential and not rolled back on failure.
	DeleteDataset(ctx context.Context, id string) error

	SaveAnalysis(ctx context.Context, a models.Analysis) (string, error)
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	// ListAnalyses returns the analyses of datasetID, newest first.
	ListAnalyses(ctx context.Context, datasetID string) ([]models.Analysis, error)
	UpdateAnalysisContent(ctx context.Context, id string, content models.AnalysisContent) error

	Close() error
}

// Drivers accepted by the store.driver setting.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)
