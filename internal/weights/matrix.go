package weights

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/roach88/remapcheck/internal/dataset"
)

// Options controls how a weight matrix is built.
type Options struct {
	// Origin is the index base; OriginAuto infers it.
	Origin Origin

	// Layout overrides layout detection when non-nil.
	Layout *Layout

	// WeightColumn selects the weight column of a 2-D remap_matrix.
	// Column 0 is the first-order conservative weight.
	WeightColumn int

	// DestSize and SrcSize fix the space sizes when non-zero. Load fills them
	// from the layout's grid-size dimensions.
	DestSize int
	SrcSize  int

	// DestHint and SrcHint are the lengths of the fields the matrix will be
	// applied to. When no size is declared they serve as origin evidence:
	// a maximum index equal to the field length means one-based indices.
	// They never fix the space sizes.
	DestHint int
	SrcHint  int

	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Matrix is a sparse weight matrix grouped by destination index.
//
// Row d holds the (source, weight) pairs at positions rowPtr[d]..rowPtr[d+1]
// in the order they appeared in the weight file, so accumulation order is
// fixed. A Matrix is immutable and safe for concurrent use.
type Matrix struct {
	layout         string
	origin         Origin
	originInferred bool

	destSize, srcSize         int
	destDeclared, srcDeclared bool

	rowPtr []int
	cols   []int32
	vals   []float64
}

// Stats summarizes a matrix for diagnostics.
type Stats struct {
	Layout         string  `json:"layout"`
	Origin         string  `json:"origin"`
	OriginInferred bool    `json:"origin_inferred"`
	DestSize       int     `json:"dest_size"`
	SrcSize        int     `json:"src_size"`
	NNZ            int     `json:"nnz"`
	EmptyRows      int     `json:"empty_rows"`
	MinRowSum      float64 `json:"min_row_sum"`
	MaxRowSum      float64 `json:"max_row_sum"`
}

// LoadFile opens a weight file, builds the matrix and closes the file.
func LoadFile(open dataset.Opener, path string, opts Options) (*Matrix, error) {
	ds, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	m, err := Load(ds, opts)
	if err != nil {
		return nil, fmt.Errorf("load weights %s: %w", path, err)
	}
	return m, nil
}

// Load reads the three triplet sequences from ds and builds the matrix.
func Load(ds dataset.Dataset, opts Options) (*Matrix, error) {
	var layout Layout
	if opts.Layout != nil {
		layout = *opts.Layout
	} else {
		l, err := DetectLayout(ds)
		if err != nil {
			return nil, err
		}
		layout = l
	}

	destVar, err := ds.Read(layout.Dest)
	if err != nil {
		return nil, err
	}
	srcVar, err := ds.Read(layout.Src)
	if err != nil {
		return nil, err
	}
	wVar, err := ds.Read(layout.Weight)
	if err != nil {
		return nil, err
	}

	if destVar.Rank() != 1 || srcVar.Rank() != 1 {
		return nil, &Error{
			Code:    ErrCodeLayout,
			Message: fmt.Sprintf("index variables must be 1-D (%s has %d dims, %s has %d)", layout.Dest, destVar.Rank(), layout.Src, srcVar.Rank()),
		}
	}

	dest, err := destVar.Ints()
	if err != nil {
		return nil, err
	}
	src, err := srcVar.Ints()
	if err != nil {
		return nil, err
	}
	w, err := wVar.Column(opts.WeightColumn)
	if err != nil {
		return nil, err
	}

	dims := ds.Dimensions()
	if opts.DestSize == 0 && layout.DestSize != "" {
		opts.DestSize = dims[layout.DestSize]
	}
	if opts.SrcSize == 0 && layout.SrcSize != "" {
		opts.SrcSize = dims[layout.SrcSize]
	}

	return build(dest, src, w, opts, layout.Name, layout.DefaultOrigin)
}

// FromTriplets builds a matrix from parallel destination, source and weight
// sequences. Auto origin falls back to zero-based when the data is ambiguous.
func FromTriplets(dest, src []int, w []float64, opts Options) (*Matrix, error) {
	return build(dest, src, w, opts, "triplets", OriginZero)
}

func build(dest, src []int, w []float64, opts Options, layout string, fallback Origin) (*Matrix, error) {
	if len(dest) != len(src) || len(dest) != len(w) {
		return nil, &Error{
			Code:    ErrCodeLayout,
			Message: fmt.Sprintf("triplet sequences differ in length (dest %d, src %d, weight %d)", len(dest), len(src), len(w)),
		}
	}
	if len(dest) == 0 {
		return nil, &Error{Code: ErrCodeLayout, Message: "weight matrix has no entries"}
	}

	de, se := scan(dest, opts.DestSize, opts.DestHint), scan(src, opts.SrcSize, opts.SrcHint)
	origin, ambiguous, err := resolveOrigin(opts.Origin, fallback, de, se)
	if err != nil {
		return nil, err
	}
	if ambiguous {
		opts.logger().Warn("index origin not determined by data, using layout convention",
			zap.String("layout", layout),
			zap.String("origin", origin.String()),
			zap.Int("dest_min", de.min),
			zap.Int("src_min", se.min),
		)
	}

	shift := 0
	if origin == OriginOne {
		shift = 1
	}

	m := &Matrix{
		layout:         layout,
		origin:         origin,
		originInferred: opts.Origin == OriginAuto,
		destSize:       opts.DestSize,
		srcSize:        opts.SrcSize,
		destDeclared:   opts.DestSize > 0,
		srcDeclared:    opts.SrcSize > 0,
	}
	if !m.destDeclared {
		m.destSize = de.max - shift + 1
	}
	if !m.srcDeclared {
		m.srcSize = se.max - shift + 1
	}
	if m.srcSize > math.MaxInt32 {
		return nil, &Error{Code: ErrCodeIndexRange, Message: fmt.Sprintf("source space of %d cells exceeds int32", m.srcSize)}
	}

	// Counting sort by destination keeps file order within each row.
	counts := make([]int, m.destSize+1)
	for i := range dest {
		d, s := dest[i]-shift, src[i]-shift
		if d < 0 || d >= m.destSize {
			return nil, newRangeError("destination", d, m.destSize)
		}
		if s < 0 || s >= m.srcSize {
			return nil, newRangeError("source", s, m.srcSize)
		}
		counts[d+1]++
	}
	for d := 0; d < m.destSize; d++ {
		counts[d+1] += counts[d]
	}
	m.rowPtr = counts

	next := make([]int, m.destSize)
	copy(next, counts[:m.destSize])
	m.cols = make([]int32, len(dest))
	m.vals = make([]float64, len(dest))
	for i := range dest {
		d := dest[i] - shift
		p := next[d]
		next[d]++
		m.cols[p] = int32(src[i] - shift)
		m.vals[p] = w[i]
	}

	return m, nil
}

// DestSize returns the size of the destination space.
func (m *Matrix) DestSize() int { return m.destSize }

// SrcSize returns the size of the source space.
func (m *Matrix) SrcSize() int { return m.srcSize }

// NNZ returns the number of stored weights.
func (m *Matrix) NNZ() int { return len(m.vals) }

// Origin returns the index base the file was read with.
func (m *Matrix) Origin() Origin { return m.origin }

// Layout returns the name of the weight file convention.
func (m *Matrix) Layout() string { return m.layout }

// Row returns the source indices and weights of destination row d.
// The slices are shared with the matrix and must not be modified.
func (m *Matrix) Row(d int) ([]int32, []float64) {
	lo, hi := m.rowPtr[d], m.rowPtr[d+1]
	return m.cols[lo:hi], m.vals[lo:hi]
}

// ErrSourceLength is wrapped by Apply when the source vector has the wrong length.
var ErrSourceLength = errors.New("source length does not match matrix")

// Apply computes the destination vector for src. Cells with valid[i] false
// contribute nothing; a nil valid means every cell is valid. Each row is
// accumulated in stored order.
func (m *Matrix) Apply(src []float64, valid []bool) ([]float64, error) {
	if len(src) != m.srcSize {
		return nil, &Error{
			Code:    ErrCodeIndexRange,
			Message: fmt.Sprintf("%v: got %d values, matrix source space has %d", ErrSourceLength, len(src), m.srcSize),
		}
	}
	if valid != nil && len(valid) != len(src) {
		return nil, &Error{
			Code:    ErrCodeIndexRange,
			Message: fmt.Sprintf("mask has %d cells, source has %d", len(valid), len(src)),
		}
	}

	out := make([]float64, m.destSize)
	for d := 0; d < m.destSize; d++ {
		acc := 0.0
		for p := m.rowPtr[d]; p < m.rowPtr[d+1]; p++ {
			s := m.cols[p]
			if valid != nil && !valid[s] {
				continue
			}
			acc += m.vals[p] * src[s]
		}
		out[d] = acc
	}
	return out, nil
}

// RowSums returns the sum of weights per destination cell. For a
// conservative map with normalized weights this is the covered fraction.
func (m *Matrix) RowSums() []float64 {
	out := make([]float64, m.destSize)
	for d := 0; d < m.destSize; d++ {
		for p := m.rowPtr[d]; p < m.rowPtr[d+1]; p++ {
			out[d] += m.vals[p]
		}
	}
	return out
}

// Stats summarizes the matrix. Row-sum extremes cover non-empty rows only.
func (m *Matrix) Stats() Stats {
	st := Stats{
		Layout:         m.layout,
		Origin:         m.origin.String(),
		OriginInferred: m.originInferred,
		DestSize:       m.destSize,
		SrcSize:        m.srcSize,
		NNZ:            m.NNZ(),
	}
	first := true
	for d, sum := range m.RowSums() {
		if m.rowPtr[d] == m.rowPtr[d+1] {
			st.EmptyRows++
			continue
		}
		if first || sum < st.MinRowSum {
			st.MinRowSum = sum
		}
		if first || sum > st.MaxRowSum {
			st.MaxRowSum = sum
		}
		first = false
	}
	return st
}
