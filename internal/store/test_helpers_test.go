package store

import (
	"path/filepath"
	"testing"

	"github.com/LDVSOFT/TestCompat/internal/testutil"
)

// createTestStore creates a new store in a temp directory with
// deterministic run IDs and timestamps.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithIDGenerator(testutil.NewSequentialIDs("run")),
		WithClock(testutil.NewStepClock().Now),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// beginTestRun starts a run and fails the test on error.
func beginTestRun(t *testing.T, s *Store, output string) string {
	t.Helper()
	id, err := s.BeginRun(t.Context(), output)
	if err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return id
}
