package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/synth"
	"github.com/roach88/remapcheck/internal/weights"
)

// WriteWeights writes zero-based triplets as a weight file in layout under
// dir and returns its path. SCRIP and ESMF files get one-based indices and
// declared grid sizes, as the real generators write them.
func WriteWeights(t *testing.T, dir, name string, layout weights.Layout, dest, src []int, w []float64, destSize, srcSize int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	err := synth.WriteWeights(path, layout, synth.Triplets{Dest: dest, Src: src, Weight: w}, srcSize, destSize)
	require.NoError(t, err)
	return path
}

// WriteField writes a 1-D field variable to dir/name. A non-nil fill is
// declared as _FillValue.
func WriteField(t *testing.T, dir, name, variable string, values []float64, fill *float64) string {
	t.Helper()
	path := filepath.Join(dir, name)
	v := dataset.VarSpec{
		Name: variable,
		Dims: []string{"n"},
		Data: append([]float64(nil), values...),
	}
	if fill != nil {
		v.Attrs = map[string]interface{}{"_FillValue": []float64{*fill}}
	}
	err := dataset.WriteNetCDF(path, dataset.FileSpec{
		Dims: []dataset.Dim{{Name: "n", Len: len(values)}},
		Vars: []dataset.VarSpec{v},
	})
	require.NoError(t, err)
	return path
}

// Conservative writes a small synthetic conservative remap (8x6 onto 5x4)
// with a constant field and returns the paths.
func Conservative(t *testing.T, dir string) synth.Paths {
	t.Helper()
	p, err := synth.Write(dir, synth.Config{
		Src:   synth.Grid{NX: 8, NY: 6},
		Dest:  synth.Grid{NX: 5, NY: 4},
		Value: 3.5,
	})
	require.NoError(t, err)
	return p
}

// Float returns a pointer to f, for optional fill values.
func Float(f float64) *float64 {
	return &f
}
