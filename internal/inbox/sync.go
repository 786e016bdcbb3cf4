// Package inbox ingests spreadsheet files dropped into a watched folder.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/checksum"
	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/models"
	"github.com/starford/tabula/internal/parser"
	"github.com/starford/tabula/internal/storage"
)

// DefaultDebounce is the quiet period a file must see before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester turns an upload into a dataset.
type Ingester interface {
	ProcessFile(ctx context.Context, up datasetservice.Upload) (*datasetservice.IngestResult, error)
}

// Index reports whether content was ingested before.
type Index interface {
	FindByChecksum(ctx context.Context, sum string) (*models.Dataset, error)
}

// EventCallback is called after the inbox ingests a file.
type EventCallback func(path, datasetID string)

// Inbox ingests every supported file under a directory once per distinct
// content.
type Inbox struct {
	ingester Ingester
	index    Index
	files    storage.Provider
	root     string
	logger   *slog.Logger
	debounce time.Duration
}

// New creates an inbox over files, whose root directory on disk is root.
func New(ing Ingester, idx Index, files storage.Provider, root string, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		ingester: ing,
		index:    idx,
		files:    files,
		root:     root,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides DefaultDebounce.
func (in *Inbox) SetDebounce(d time.Duration) { in.debounce = d }

// Sync walks the inbox and ingests every supported file whose content has
// not been ingested yet. It returns the number of new datasets.
func (in *Inbox) Sync(ctx context.Context, cb EventCallback) (int, error) {
	metas, err := in.files.List("", parser.Supported)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range metas {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		id, err := in.ingest(ctx, m.Path, m.Checksum, m.Size)
		if err != nil {
			in.logger.Warn("inbox: ingest failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if id == "" {
			continue
		}
		n++
		if cb != nil {
			cb(m.Path, id)
		}
	}
	return n, nil
}

// ingestPath hashes the file at rel and ingests it when new.
func (in *Inbox) ingestPath(ctx context.Context, rel string) (string, error) {
	rc, err := in.files.Open(rel)
	if err != nil {
		return "", err
	}
	sum, size, err := checksum.SumReader(rc)
	rc.Close()
	if err != nil {
		return "", err
	}
	return in.ingest(ctx, rel, sum, size)
}

// ingest returns the id of the new dataset, or "" when the content is
// already known.
func (in *Inbox) ingest(ctx context.Context, rel, sum string, size int64) (string, error) {
	if existing, err := in.index.FindByChecksum(ctx, sum); err == nil {
		in.logger.Debug("inbox: already ingested",
			slog.String("path", rel),
			slog.String("dataset_id", existing.ID))
		return "", nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}

	res, err := in.ingester.ProcessFile(ctx, datasetservice.Upload{
		Filename: filepath.Base(rel),
		Size:     size,
		Checksum: sum,
		Source:   storage.File{P: in.files, Path: rel},
	})
	if err != nil {
		return "", err
	}
	in.logger.Info("inbox: ingested", slog.String("path", rel), slog.String("dataset_id", res.DatasetID))
	return res.DatasetID, nil
}
