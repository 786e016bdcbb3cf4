// Package testutil provides shared test helpers for setting up stores and upload directories.
package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/starford/tabula/internal/datastore/sqlitestore"
	"github.com/starford/tabula/internal/storage"
)

// TestStore creates a temporary SQLite store that is automatically cleaned up.
func TestStore(t *testing.T) *sqlitestore.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "tabula-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := sqlitestore.Open(context.Background(), dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestUploads creates a temporary upload directory with a storage.Provider.
func TestUploads(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}
