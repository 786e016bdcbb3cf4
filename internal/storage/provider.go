// Package storage keeps uploaded source files on disk.
package storage

import (
	"io"
	"time"
)

// FileInfo describes one stored file.
type FileInfo struct {
	Path     string
	Size     int64
	Checksum string
	ModTime  time.Time
}

// Stored is the result of saving an upload.
type Stored struct {
	Path     string
	Checksum string
	Size     int64
}

// Provider is the interface for upload file operations. Paths are relative
// to the provider root.
type Provider interface {
	// List returns metadata for every file under dir accepted by keep.
	// A nil keep accepts everything.
	List(dir string, keep func(name string) bool) ([]FileInfo, error)
	// Open returns a reader for the file at path.
	Open(path string) (io.ReadCloser, error)
	// Write atomically writes r to path.
	Write(path string, r io.Reader) error
	// Save stores r content-addressed as <sha256><ext of filename>.
	Save(filename string, r io.Reader) (Stored, error)
	// Delete removes the file at path.
	Delete(path string) error
}

// File is a stored file usable as an ingestion source.
type File struct {
	P    Provider
	Path string
}

// Open opens the file for reading.
func (f File) Open() (io.ReadCloser, error) {
	return f.P.Open(f.Path)
}
