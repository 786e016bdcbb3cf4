// Package apperr holds the error taxonomy shared by ingestion, storage and the API.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrInvalidFile         = errors.New("file content could not be parsed")
	ErrEmptyDataset        = errors.New("no data found in file")
	ErrStore               = errors.New("store operation failed")
	ErrAnalyzerUnavailable = errors.New("analyzer not configured")
)

// StoreError reports a failed backing-store operation. It matches ErrStore.
type StoreError struct {
	Op  string
	Err error
}

// Store wraps err as a StoreError for op. A nil err stays nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStore.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Ingestion stages after which a write can fail.
const (
	StageColumns = "columns"
	StageRows    = "rows"
)

// PartialWriteError reports an ingestion that failed after the dataset
// record was written. Compensated is true when the partial dataset was
// removed again.
type PartialWriteError struct {
	DatasetID   string
	Stage       string
	Compensated bool
	Err         error
}

func (e *PartialWriteError) Error() string {
	state := "left in place"
	if e.Compensated {
		state = "rolled back"
	}
	return fmt.Sprintf("partial write of dataset %s failed at %s (%s): %v", e.DatasetID, e.Stage, state, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
