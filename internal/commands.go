package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/mcpserver"
	"github.com/starford/tabula/internal/storage"
)

// IngestFiles stores and ingests local files without starting the server.
// Every path is attempted; the first failure is returned after all ran.
func IngestFiles(ctx context.Context, paths []string, opts ...Option) ([]*datasetservice.IngestResult, error) {
	app, logger, err := newApplication(opts...)
	if err != nil {
		return nil, err
	}

	svc, store, files, err := openService(ctx, app.config, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	var (
		results  []*datasetservice.IngestResult
		firstErr error
	)
	for _, p := range paths {
		res, err := ingestLocal(ctx, svc, files, p)
		if err != nil {
			logger.Error("ingest failed", slog.String("path", p), slog.String("error", err.Error()))
			if firstErr == nil {
				firstErr = fmt.Errorf("ingest %s: %w", p, err)
			}
			continue
		}
		results = append(results, res)
	}
	return results, firstErr
}

func ingestLocal(ctx context.Context, svc *datasetservice.Service, files storage.Provider, path string) (*datasetservice.IngestResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	stored, err := files.Save(name, f)
	if err != nil {
		return nil, err
	}
	return svc.ProcessFile(ctx, datasetservice.Upload{
		Filename: name,
		Size:     stored.Size,
		Checksum: stored.Checksum,
		Source:   storage.File{P: files, Path: stored.Path},
	})
}

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects.
func ServeMCP(ctx context.Context, opts ...Option) error {
	app, logger, err := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if err != nil {
		return err
	}

	svc, store, files, err := openService(ctx, app.config, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.Info("MCP server starting", slog.String("store_driver", app.config.Store.Driver))
	return mcpserver.New(svc, files, app.version).ServeStdio()
}
