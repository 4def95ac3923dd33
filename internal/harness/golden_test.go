package harness

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGolden(t *testing.T) {
	dir := fixtureDir(t)

	writeScenario(t, dir, "half_weights_conserved.yaml", `name: half_weights_conserved
description: "two source cells averaged onto one destination cell"
weights: w.nc
src: src.nc
dest: dest_ok.nc
expect: conserved
assertions:
  - type: layout
    equals: generic
  - type: nnz
    count: 2
`)
	writeScenario(t, dir, "half_weights_violated.yaml", `name: half_weights_violated
description: "destination snapshot disagrees with the averaged source"
resolution: one_deg
weights: w.nc
src: src.nc
dest: dest_bad.nc
expect: violated
assertions:
  - type: relative_error_above
    value: 0.2
`)
	writeScenario(t, dir, "missing_weights_io_error.yaml", `name: missing_weights_io_error
description: "weight file does not exist"
weights: missing.nc
src: src.nc
dest: dest_ok.nc
expect: io_error
`)

	files, err := FindScenarioFiles(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 3)

	for _, file := range files {
		s, err := LoadScenario(file)
		require.NoError(t, err)
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestSnapshot_Errors(t *testing.T) {
	r := &Result{
		Scenario:  "failing",
		Expected:  OutcomeConserved,
		Outcome:   OutcomeIOError,
		Tolerance: 1e-9,
		ErrorKind: "IO_ERROR",
		Error:     "open missing.nc: no such file",
		Errors:    []string{"expected conserved, got io_error: open missing.nc: no such file"},
	}
	data, err := Snapshot(r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"error_kind":"IO_ERROR","errors":["expected conserved, got io_error: open missing.nc: no such file"],"expected":"conserved","outcome":"io_error","pass":false,"scenario":"failing","tolerance":"1e-09"}`,
		string(data))
}

func TestWriteCompareGolden(t *testing.T) {
	dir := fixtureDir(t)
	scenarioFile := filepath.Join(dir, "suite", "check.yaml")
	path := GoldenPath(scenarioFile)
	assert.Equal(t, filepath.Join(dir, "suite", "golden", "check.golden"), path)

	ok, err := Run(t.Context(), scenarioIn(dir, "ok", "dest_ok.nc", OutcomeConserved), Options{})
	require.NoError(t, err)
	bad, err := Run(t.Context(), scenarioIn(dir, "ok", "dest_bad.nc", OutcomeConserved), Options{})
	require.NoError(t, err)

	_, err = CompareGolden(path, ok)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, WriteGolden(path, ok))

	same, err := CompareGolden(path, ok)
	require.NoError(t, err)
	assert.True(t, same)

	same, err = CompareGolden(path, bad)
	require.NoError(t, err)
	assert.False(t, same)
}
