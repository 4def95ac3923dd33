package store

import (
	"path/filepath"
	"testing"
)

// createTestStore opens a fresh store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun returns a conserved run with minimal required fields.
func createTestRun(scenario, batch string, seq int64) Run {
	return Run{
		BatchToken:    batch,
		Seq:           seq,
		Scenario:      scenario,
		WeightsPath:   "rmp.nc",
		SrcPath:       "src.nc",
		DestPath:      "dest.nc",
		RelativeError: "1e-15",
		Tolerance:     "1e-09",
		Outcome:       "conserved",
		NNZ:           4,
	}
}
