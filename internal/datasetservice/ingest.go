package datasetservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/checksum"
	"github.com/starford/tabula/internal/cleaner"
	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/parser"
	"github.com/starford/tabula/internal/schema"
)

// Source yields the raw bytes of an upload.
type Source interface {
	Open() (io.ReadCloser, error)
}

// Upload describes one file handed to ProcessFile. Checksum is computed
// from the content when empty.
type Upload struct {
	Filename string
	Size     int64
	Checksum string
	Source   Source
}

// ColumnSummary describes one inferred column in an ingestion result.
type ColumnSummary struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	UniqueValues int    `json:"uniqueValues"`
}

// Summary is the shape of an ingested dataset.
type Summary struct {
	TotalRows    int             `json:"totalRows"`
	TotalColumns int             `json:"totalColumns"`
	Columns      []ColumnSummary `json:"columns"`
}

// IngestResult is returned by ProcessFile.
type IngestResult struct {
	DatasetID string  `json:"datasetId"`
	Summary   Summary `json:"summary"`
}

// DatasetName derives the display name of a dataset from its filename by
// dropping the last extension.
func DatasetName(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ProcessFile parses, cleans and infers the schema of an upload, then
// writes the dataset, its columns and its rows.
//
// Nothing is written when parsing fails or no record survives cleaning.
// A failure after the dataset record exists triggers a compensating delete
// and is reported as *apperr.PartialWriteError.
func (s *Service) ProcessFile(ctx context.Context, up Upload) (*IngestResult, error) {
	start := time.Now()

	kind, err := parser.KindFromFilename(up.Filename)
	if err != nil {
		return nil, err
	}
	data, err := readSource(up.Source)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", up.Filename, err)
	}
	if up.Checksum == "" {
		up.Checksum = checksum.Sum(data)
	}
	if up.Size <= 0 {
		up.Size = int64(len(data))
	}

	raw, err := parser.ParseBytes(data, kind)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, apperr.ErrEmptyDataset
	}
	recs := cleaner.Clean(raw)
	if len(recs) == 0 {
		return nil, apperr.ErrEmptyDataset
	}
	cols := schema.Infer(recs, s.schema)

	id, err := s.store.CreateDataset(ctx, models.Dataset{
		Name:             DatasetName(up.Filename),
		OriginalFilename: up.Filename,
		FileType:         string(kind),
		RowCount:         len(recs),
		ColumnCount:      len(cols),
		FileSize:         up.Size,
		Checksum:         up.Checksum,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: create dataset: %w", err)
	}

	if err := s.store.SaveColumns(ctx, id, schema.Models(id, cols)); err != nil {
		return nil, s.compensate(ctx, id, apperr.StageColumns, err)
	}
	if err := s.store.SaveRows(ctx, id, recs); err != nil {
		return nil, s.compensate(ctx, id, apperr.StageRows, err)
	}

	s.logger.Info("dataset ingested",
		slog.String("dataset_id", id),
		slog.String("file", up.Filename),
		slog.Int("rows", len(recs)),
		slog.Int("columns", len(cols)),
		slog.Duration("elapsed", time.Since(start)),
	)
	s.notify(EventDatasetCreated, id, DatasetName(up.Filename))

	return &IngestResult{DatasetID: id, Summary: summarize(len(recs), cols)}, nil
}

// compensate removes a partially written dataset. It runs even when ctx
// has been cancelled.
func (s *Service) compensate(ctx context.Context, id, stage string, cause error) error {
	perr := &apperr.PartialWriteError{DatasetID: id, Stage: stage, Err: cause}
	delErr := s.store.DeleteDataset(context.WithoutCancel(ctx), id)
	if delErr == nil || errors.Is(delErr, apperr.ErrNotFound) {
		perr.Compensated = true
	} else {
		s.logger.Error("compensating delete failed",
			slog.String("dataset_id", id),
			slog.String("stage", stage),
			slog.String("error", delErr.Error()),
		)
	}
	return perr
}

func readSource(src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("no source")
	}
	rc, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func summarize(rows int, cols []schema.Column) Summary {
	out := Summary{
		TotalRows:    rows,
		TotalColumns: len(cols),
		Columns:      make([]ColumnSummary, len(cols)),
	}
	for i, c := range cols {
		out.Columns[i] = ColumnSummary{Name: c.Name, Type: c.Type, UniqueValues: c.UniqueValues}
	}
	return out
}
