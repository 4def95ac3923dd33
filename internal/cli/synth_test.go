package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remapcheck/internal/harness"
)

func TestSynthWritesFixture(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "fixture")

	out, err := execute(t, "synth", dir, "--src", "8x6", "--dest", "5x4")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 8x6 onto 5x4")
	assert.Contains(t, out, "(scrip)")
	for _, name := range []string{"weights.nc", "src.nc", "dest.nc"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	// The fixture verifies as conserved.
	out, err = execute(t, "verify", "-v",
		filepath.Join(dir, "weights.nc"), filepath.Join(dir, "src.nc"), filepath.Join(dir, "dest.nc"))
	require.NoError(t, err)
	assert.Contains(t, out, "✓ conserved")
	assert.Contains(t, out, "origin one (inferred)")
}

func TestSynthScenario(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "synth", dir, "--src", "12x9", "--dest", "7x5",
		"--layout", "esmf", "--pattern", "wave", "--var", "sst", "--scenario", "synthetic_wave", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   SynthResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, filepath.Join(dir, "synthetic_wave.yaml"), resp.Data.Scenario)
	assert.Positive(t, resp.Data.NNZ)

	s, err := harness.LoadScenario(resp.Data.Scenario)
	require.NoError(t, err)
	assert.Equal(t, "sst", s.SrcVar)
	assert.Equal(t, "esmf", s.Layout)
	assert.Equal(t, filepath.Join(dir, "weights.nc"), s.Weights)

	out, err = execute(t, "test", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ synthetic_wave (conserved")
}

func TestSynthInvalidFlags(t *testing.T) {
	dir := t.TempDir()
	tests := [][]string{
		{"synth", dir, "--src", "8", "--dest", "5x4"},
		{"synth", dir, "--src", "8x6", "--dest", "0x4"},
		{"synth", dir, "--src", "8x6", "--dest", "5x4", "--layout", "cf"},
		{"synth", dir, "--src", "8x6", "--dest", "5x4", "--pattern", "noise"},
	}
	for _, args := range tests {
		_, err := execute(t, args...)
		require.Error(t, err, "%v", args)
		assert.Equal(t, ExitCommandError, GetExitCode(err), "%v", args)
	}

	_, err := execute(t, "synth", dir, "--dest", "5x4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "src" not set`)
}
