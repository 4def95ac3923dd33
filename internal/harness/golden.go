package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/remapcheck/internal/canon"
)

// Snapshot returns the canonical JSON form of r used for golden files.
func Snapshot(r *Result) ([]byte, error) {
	snap := map[string]any{
		"scenario":  r.Scenario,
		"expected":  r.Expected,
		"outcome":   r.Outcome,
		"pass":      r.Pass,
		"tolerance": canon.Float(r.Tolerance),
	}
	if r.Resolution != "" {
		snap["resolution"] = r.Resolution
	}
	if r.ErrorKind != "" {
		snap["error_kind"] = r.ErrorKind
	}
	if len(r.Errors) > 0 {
		errs := make([]any, len(r.Errors))
		for i, e := range r.Errors {
			errs[i] = e
		}
		snap["errors"] = errs
	}
	if rep := r.Report; rep != nil {
		snap["relative_error"] = canon.Float(rep.RelativeError)
		snap["sums"] = map[string]any{
			"dest":          canon.Float(rep.DestSum),
			"reconstructed": canon.Float(rep.ReconstructedSum),
			"src":           canon.Float(rep.SrcSum),
		}
		snap["valid"] = map[string]any{
			"dest": rep.DestValid,
			"src":  rep.SrcValid,
		}
		st := rep.Matrix
		snap["matrix"] = map[string]any{
			"layout":          st.Layout,
			"origin":          st.Origin,
			"origin_inferred": st.OriginInferred,
			"dest_size":       st.DestSize,
			"src_size":        st.SrcSize,
			"nnz":             st.NNZ,
			"empty_rows":      st.EmptyRows,
			"min_row_sum":     canon.Float(st.MinRowSum),
			"max_row_sum":     canon.Float(st.MaxRowSum),
		}
	}
	return canon.Marshal(snap)
}

// RunWithGolden runs scenario with default options and compares its
// snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(t.Context(), scenario, Options{})
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}

// GoldenPath returns the golden file for a scenario file:
// <dir>/golden/<base name>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// WriteGolden stores the snapshot of r at path, creating the directory.
func WriteGolden(path string, r *Result) error {
	data, err := Snapshot(r)
	if err != nil {
		return fmt.Errorf("failed to snapshot result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of r matches the golden file at
// path. A missing golden file returns an error wrapping fs.ErrNotExist.
func CompareGolden(path string, r *Result) (bool, error) {
	want, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	got, err := Snapshot(r)
	if err != nil {
		return false, fmt.Errorf("failed to snapshot result: %w", err)
	}
	return bytes.Equal(want, got), nil
}
