package weights

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/remapcheck/internal/dataset"
)

func scripDataset(dest, src []float64, w []float64, destSize, srcSize int) *dataset.Memory {
	m := dataset.NewMemory().
		Add("dst_address", "num_links", dest).
		Add("src_address", "num_links", src).
		Add("remap_matrix", "num_links", w)
	if destSize > 0 {
		m.Dims["dst_grid_size"] = destSize
	}
	if srcSize > 0 {
		m.Dims["src_grid_size"] = srcSize
	}
	return m
}

func TestParseOrigin(t *testing.T) {
	tests := []struct {
		in   string
		want Origin
	}{
		{"", OriginAuto},
		{"auto", OriginAuto},
		{"zero", OriginZero},
		{"0", OriginZero},
		{"ONE", OriginOne},
		{"1", OriginOne},
	}
	for _, tt := range tests {
		got, err := ParseOrigin(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseOrigin("two")
	assert.Error(t, err)
}

func TestResolveOrigin(t *testing.T) {
	tests := []struct {
		name      string
		want      Origin
		dest, src extent
		expect    Origin
		ambiguous bool
		errCode   ErrorCode
	}{
		{"zero present", OriginAuto, extent{0, 3, 4, 0}, extent{1, 2, 3, 0}, OriginZero, false, ""},
		{"size present", OriginAuto, extent{1, 4, 4, 0}, extent{1, 2, 3, 0}, OriginOne, false, ""},
		{"no evidence", OriginAuto, extent{1, 2, 4, 0}, extent{1, 2, 3, 0}, OriginOne, true, ""},
		{"both", OriginAuto, extent{0, 4, 4, 0}, extent{1, 2, 3, 0}, OriginAuto, false, ErrCodeOrigin},
		{"explicit zero contradicted", OriginZero, extent{1, 4, 4, 0}, extent{1, 2, 3, 0}, OriginAuto, false, ErrCodeOrigin},
		{"explicit one contradicted", OriginOne, extent{0, 2, 4, 0}, extent{1, 2, 3, 0}, OriginAuto, false, ErrCodeOrigin},
		{"explicit one", OriginOne, extent{1, 2, 0, 0}, extent{1, 2, 0, 0}, OriginOne, false, ""},
		{"field length present", OriginAuto, extent{1, 1, 0, 1}, extent{1, 2, 0, 2}, OriginOne, false, ""},
		{"field length not reached", OriginAuto, extent{1, 1, 0, 2}, extent{1, 2, 0, 3}, OriginOne, true, ""},
		{"declared size wins over field length", OriginAuto, extent{1, 2, 4, 2}, extent{1, 2, 3, 2}, OriginOne, true, ""},
		{"zero and field length", OriginAuto, extent{0, 2, 0, 2}, extent{1, 2, 0, 0}, OriginAuto, false, ErrCodeOrigin},
		{"negative", OriginAuto, extent{-1, 2, 0, 0}, extent{1, 2, 0, 0}, OriginAuto, false, ErrCodeIndexRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, ambiguous, err := resolveOrigin(tt.want, OriginOne, tt.dest, tt.src)
			if tt.errCode != "" {
				var we *Error
				require.ErrorAs(t, err, &we)
				assert.Equal(t, tt.errCode, we.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, o)
			assert.Equal(t, tt.ambiguous, ambiguous)
		})
	}
}

func TestDetectLayout(t *testing.T) {
	scrip := scripDataset([]float64{1}, []float64{1}, []float64{1}, 0, 0)
	l, err := DetectLayout(scrip)
	require.NoError(t, err)
	assert.Equal(t, "scrip", l.Name)

	esmf := dataset.NewMemory().
		Add("row", "n_s", []float64{1}).
		Add("col", "n_s", []float64{1}).
		Add("S", "n_s", []float64{1})
	l, err = DetectLayout(esmf)
	require.NoError(t, err)
	assert.Equal(t, "esmf", l.Name)

	generic := dataset.NewMemory().
		Add("destination_index", "n", []float64{0}).
		Add("source_index", "n", []float64{0}).
		Add("weight", "n", []float64{1})
	l, err = DetectLayout(generic)
	require.NoError(t, err)
	assert.Equal(t, "generic", l.Name)

	_, err = DetectLayout(dataset.NewMemory().Add("Array", "n", []float64{1}))
	assert.True(t, IsLayoutError(err))

	_, err = LayoutByName("esmf")
	assert.NoError(t, err)
	_, err = LayoutByName("cdo")
	assert.Error(t, err)
}

func TestLoad_SCRIPOneBased(t *testing.T) {
	ds := scripDataset([]float64{1, 1, 2}, []float64{1, 2, 3}, []float64{0.5, 0.5, 1}, 2, 3)

	m, err := Load(ds, Options{})
	require.NoError(t, err)
	assert.Equal(t, OriginOne, m.Origin())
	assert.Equal(t, "scrip", m.Layout())
	assert.Equal(t, 2, m.DestSize())
	assert.Equal(t, 3, m.SrcSize())
	assert.Equal(t, 3, m.NNZ())

	cols, vals := m.Row(0)
	assert.Equal(t, []int32{0, 1}, cols)
	assert.Equal(t, []float64{0.5, 0.5}, vals)
}

func TestLoad_AmbiguousOriginWarns(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	// Declared sizes 4 and max index 2: no 0 and no size, so the SCRIP default applies.
	ds := scripDataset([]float64{1, 2}, []float64{1, 2}, []float64{1, 1}, 4, 4)

	m, err := Load(ds, Options{Logger: zap.New(core)})
	require.NoError(t, err)
	assert.Equal(t, OriginOne, m.Origin())
	assert.Equal(t, 1, logs.FilterMessageSnippet("index origin").Len())
}

func TestLoad_GenericOneBasedFromFieldLengths(t *testing.T) {
	ds := dataset.NewMemory().
		Add("destination_index", "n", []float64{1, 1}).
		Add("source_index", "n", []float64{1, 2}).
		Add("weight", "n", []float64{0.5, 0.5})

	m, err := Load(ds, Options{DestHint: 1, SrcHint: 2})
	require.NoError(t, err)
	assert.Equal(t, OriginOne, m.Origin())
	assert.True(t, m.Stats().OriginInferred)
	assert.Equal(t, 1, m.DestSize())
	assert.Equal(t, 2, m.SrcSize())

	cols, vals := m.Row(0)
	assert.Equal(t, []int32{0, 1}, cols)
	assert.Equal(t, []float64{0.5, 0.5}, vals)

	// Without the field lengths the generic convention applies.
	m, err = Load(ds, Options{})
	require.NoError(t, err)
	assert.Equal(t, OriginZero, m.Origin())
	assert.Equal(t, 3, m.SrcSize())
}

func TestLoad_ExplicitLayoutAndColumn(t *testing.T) {
	ds := dataset.NewMemory().
		Add("dst_address", "num_links", []float64{0, 1}).
		Add("src_address", "num_links", []float64{0, 1}).
		AddVariable(&dataset.Variable{
			Name:   "remap_matrix",
			Dims:   []string{"num_links", "num_wgts"},
			Shape:  []int{2, 3},
			Values: []float64{1, 7, 0, 2, 8, 0},
		})

	layout := LayoutSCRIP
	m, err := Load(ds, Options{Layout: &layout, WeightColumn: 1, Origin: OriginZero})
	require.NoError(t, err)
	_, vals := m.Row(1)
	assert.Equal(t, []float64{8}, vals)
}

func TestLoad_RejectsNonIntegerIndices(t *testing.T) {
	ds := scripDataset([]float64{1.5}, []float64{1}, []float64{1}, 0, 0)
	_, err := Load(ds, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")
}

func TestFromTriplets_RangeErrors(t *testing.T) {
	_, err := FromTriplets([]int{0}, []int{5}, []float64{1}, Options{SrcSize: 2})
	require.True(t, IsIndexError(err))
	var we *Error
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "source", we.Details["space"])

	_, err = FromTriplets([]int{3}, []int{0}, []float64{1}, Options{DestSize: 2})
	require.True(t, IsIndexError(err))

	_, err = FromTriplets([]int{0, 1}, []int{0}, []float64{1}, Options{})
	assert.True(t, IsLayoutError(err))

	_, err = FromTriplets(nil, nil, nil, Options{})
	assert.True(t, IsLayoutError(err))
}

func TestApply(t *testing.T) {
	m, err := FromTriplets([]int{0, 0, 1}, []int{0, 1, 1}, []float64{0.5, 0.5, 2}, Options{})
	require.NoError(t, err)

	out, err := m.Apply([]float64{2, 4}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 8}, out)

	out, err = m.Apply([]float64{2, 4}, []bool{true, false})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, out)

	_, err = m.Apply([]float64{1}, nil)
	require.Error(t, err)
	assert.True(t, IsIndexError(err))

	_, err = m.Apply([]float64{1, 2}, []bool{true})
	assert.Error(t, err)
}

func TestApply_KeepsFileOrderWithinRows(t *testing.T) {
	// Entries for row 0 are interleaved with row 1; accumulation must follow
	// file order within each row so results are bit-identical across runs.
	dest := []int{1, 0, 1, 0, 0}
	src := []int{0, 2, 1, 0, 1}
	w := []float64{1, 1e16, 1, 1, -1e16}
	m, err := FromTriplets(dest, src, w, Options{})
	require.NoError(t, err)

	cols, vals := m.Row(0)
	assert.Equal(t, []int32{2, 0, 1}, cols)
	assert.Equal(t, []float64{1e16, 1, -1e16}, vals)

	a, err := m.Apply([]float64{1, 1, 1}, nil)
	require.NoError(t, err)
	b, err := m.Apply([]float64{1, 1, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, math.Float64bits(a[0]), math.Float64bits(b[0]))
}

func TestStats(t *testing.T) {
	m, err := FromTriplets([]int{0, 0, 2}, []int{0, 1, 1}, []float64{0.25, 0.5, 1}, Options{})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.75, 0, 1}, m.RowSums())

	st := m.Stats()
	assert.Equal(t, "triplets", st.Layout)
	assert.Equal(t, "zero", st.Origin)
	assert.True(t, st.OriginInferred)
	assert.Equal(t, 3, st.DestSize)
	assert.Equal(t, 2, st.SrcSize)
	assert.Equal(t, 3, st.NNZ)
	assert.Equal(t, 1, st.EmptyRows)
	assert.Equal(t, 0.75, st.MinRowSum)
	assert.Equal(t, 1.0, st.MaxRowSum)
}
