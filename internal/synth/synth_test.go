package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/weights"
)

func TestParseGrid(t *testing.T) {
	g, err := ParseGrid("360x180")
	require.NoError(t, err)
	assert.Equal(t, Grid{NX: 360, NY: 180}, g)
	assert.Equal(t, "360x180", g.String())

	for _, bad := range []string{"", "360", "0x10", "ax3", "1x2x3"} {
		_, err := ParseGrid(bad)
		assert.Error(t, err, bad)
	}
}

func TestOverlapWeights_RowsSumToOne(t *testing.T) {
	for _, tc := range []struct{ src, dest Grid }{
		{Grid{4, 4}, Grid{2, 2}},
		{Grid{3, 5}, Grid{7, 2}},
		{Grid{10, 10}, Grid{10, 10}},
	} {
		tr := OverlapWeights(tc.src, tc.dest)
		m, err := weights.FromTriplets(tr.Dest, tr.Src, tr.Weight, weights.Options{
			Origin: weights.OriginZero, DestSize: tc.dest.Size(), SrcSize: tc.src.Size(),
		})
		require.NoError(t, err)
		for d, s := range m.RowSums() {
			assert.InDelta(t, 1.0, s, 1e-14, "%s -> %s row %d", tc.src, tc.dest, d)
		}
	}
}

func TestOverlapWeights_Aggregation(t *testing.T) {
	// 2x1 onto 1x1: each source cell covers half of the destination.
	tr := OverlapWeights(Grid{2, 1}, Grid{1, 1})
	assert.Equal(t, []int{0, 0}, tr.Dest)
	assert.Equal(t, []int{0, 1}, tr.Src)
	assert.Equal(t, []float64{0.5, 0.5}, tr.Weight)
}

func TestWrite(t *testing.T) {
	for _, pattern := range []Pattern{PatternConstant, PatternWave} {
		t.Run(string(pattern), func(t *testing.T) {
			p, err := Write(t.TempDir(), Config{
				Src:     Grid{6, 3},
				Dest:    Grid{4, 2},
				Pattern: pattern,
				Layout:  weights.LayoutESMF,
			})
			require.NoError(t, err)

			m, err := weights.LoadFile(dataset.OpenNetCDF, p.Weights, weights.Options{})
			require.NoError(t, err)
			assert.Equal(t, "esmf", m.Layout())
			assert.Equal(t, weights.OriginOne, m.Origin())

			src, err := dataset.ReadField(dataset.OpenNetCDF, p.Src, "Array", "")
			require.NoError(t, err)
			assert.Equal(t, []int{3, 6}, src.Shape())

			dest, err := dataset.ReadField(dataset.OpenNetCDF, p.Dest, "Array", "")
			require.NoError(t, err)
			assert.Equal(t, 8, dest.Len())
		})
	}

	_, err := Write(t.TempDir(), Config{Src: Grid{1, 1}, Dest: Grid{1, 1}, Pattern: "noise"})
	assert.Error(t, err)
	_, err = Write(t.TempDir(), Config{})
	assert.Error(t, err)
}
