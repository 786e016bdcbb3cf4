package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/datastore/sqlitestore"
	"github.com/starford/tabula/internal/testutil"
)

const sales = "region,sales\nnorth,10\nsouth,5\n"

// inboxTestEnv sets up an inbox dir, storage, store and service.
func inboxTestEnv(t *testing.T) (string, *Inbox, *sqlitestore.DB) {
	t.Helper()
	dir, files := testutil.TestUploads(t)
	db := testutil.TestStore(t)
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	svc := datasetservice.New(db, datasetservice.WithLogger(logger))
	in := New(svc, db, files, dir, logger)
	in.SetDebounce(50 * time.Millisecond)
	return dir, in, db
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func datasetCount(t *testing.T, db *sqlitestore.DB) int {
	t.Helper()
	list, err := db.ListDatasets(context.Background())
	if err != nil {
		t.Fatalf("ListDatasets: %v", err)
	}
	return len(list)
}

func TestSync_IngestsOncePerContent(t *testing.T) {
	dir, in, db := inboxTestEnv(t)
	_ = os.WriteFile(filepath.Join(dir, "a.csv"), []byte(sales), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "copy-of-a.csv"), []byte(sales), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)
	_ = os.WriteFile(filepath.Join(dir, "empty.csv"), []byte("a,b\n"), 0o644)

	var got []string
	n, err := in.Sync(context.Background(), func(path, id string) { got = append(got, path) })
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if n != 1 {
		t.Fatalf("ingested = %d, want 1", n)
	}
	if len(got) != 1 {
		t.Errorf("callbacks = %v", got)
	}

	n, err = in.Sync(context.Background(), nil)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if n != 0 {
		t.Errorf("second sync ingested %d, want 0", n)
	}
	if c := datasetCount(t, db); c != 1 {
		t.Errorf("datasets = %d, want 1", c)
	}
}

func TestWatch_NewFileIngested(t *testing.T) {
	dir, in, db := inboxTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go in.Watch(ctx, func(path, id string) {
		mu.Lock()
		events = append(events, path)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "new.csv"), []byte(sales), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return datasetCount(t, db) == 1
	}, "new file not ingested by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1 && events[0] == "new.csv"
	}, "expected callback for new.csv")
}

func TestWatch_NewDirWatched(t *testing.T) {
	dir, in, db := inboxTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go in.Watch(ctx, nil)
	time.Sleep(100 * time.Millisecond)

	sub := filepath.Join(dir, "2024")
	_ = os.MkdirAll(sub, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(sub, "deep.xlsx.csv"), []byte(sales), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return datasetCount(t, db) == 1
	}, "file in new subdir not ingested by watcher")
}

func TestWatch_RemoveKeepsDataset(t *testing.T) {
	dir, in, db := inboxTestEnv(t)
	path := filepath.Join(dir, "keep.csv")
	_ = os.WriteFile(path, []byte(sales), 0o644)
	if _, err := in.Sync(context.Background(), nil); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go in.Watch(ctx, nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(path)
	time.Sleep(300 * time.Millisecond)

	if c := datasetCount(t, db); c != 1 {
		t.Errorf("datasets = %d, want 1", c)
	}
}
