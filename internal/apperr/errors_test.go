package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("ingest: %w", Store("insert rows", cause))

	if !errors.Is(err, ErrStore) {
		t.Error("expected errors.Is(err, ErrStore)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be reachable")
	}
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatal("expected errors.As to find *StoreError")
	}
	if se.Op != "insert rows" {
		t.Errorf("op = %q, want %q", se.Op, "insert rows")
	}
}

func TestStore_NilStaysNil(t *testing.T) {
	if err := Store("noop", nil); err != nil {
		t.Errorf("Store(nil) = %v, want nil", err)
	}
}

func TestPartialWriteError_Unwraps(t *testing.T) {
	err := &PartialWriteError{DatasetID: "d1", Stage: StageRows, Compensated: true, Err: Store("insert rows", errors.New("boom"))}
	if !errors.Is(err, ErrStore) {
		t.Error("partial write should expose the store failure")
	}
	if got := err.Error(); got != "partial write of dataset d1 failed at rows (rolled back): store: insert rows: boom" {
		t.Errorf("Error() = %q", got)
	}
}
