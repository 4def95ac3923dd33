// Package synth generates self-consistent remap fixtures: a conservative
// weight file between two regular grids plus matching source and destination
// fields.
//
// Both grids cover the unit square. The weight from source cell s to
// destination cell d is the fraction of d's area overlapped by s, so every
// fully covered destination row sums to one and a constant field maps to the
// same constant.
package synth

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/weights"
)

// Grid is a regular NX by NY grid over the unit square, stored row-major
// (y outer, x inner).
type Grid struct {
	NX, NY int
}

// Size returns the number of cells.
func (g Grid) Size() int { return g.NX * g.NY }

func (g Grid) String() string { return fmt.Sprintf("%dx%d", g.NX, g.NY) }

// ParseGrid parses "NXxNY", e.g. "360x180".
func ParseGrid(s string) (Grid, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "x")
	if len(parts) != 2 {
		return Grid{}, fmt.Errorf("invalid grid %q: want NXxNY", s)
	}
	nx, err := strconv.Atoi(parts[0])
	if err != nil {
		return Grid{}, fmt.Errorf("invalid grid %q: %w", s, err)
	}
	ny, err := strconv.Atoi(parts[1])
	if err != nil {
		return Grid{}, fmt.Errorf("invalid grid %q: %w", s, err)
	}
	if nx <= 0 || ny <= 0 {
		return Grid{}, fmt.Errorf("invalid grid %q: dimensions must be positive", s)
	}
	return Grid{NX: nx, NY: ny}, nil
}

// overlap1D returns, for each destination interval p of nd equal intervals
// on [0,1], the source intervals i of ns that intersect it and the fraction
// of p they cover.
func overlap1D(ns, nd int) [][]span {
	out := make([][]span, nd)
	for p := 0; p < nd; p++ {
		lo, hi := float64(p)/float64(nd), float64(p+1)/float64(nd)
		first := max(0, int(math.Floor(lo*float64(ns)))-1)
		for i := first; i < ns; i++ {
			slo, shi := float64(i)/float64(ns), float64(i+1)/float64(ns)
			if slo >= hi {
				break
			}
			w := (math.Min(hi, shi) - math.Max(lo, slo)) * float64(nd)
			if w > 0 {
				out[p] = append(out[p], span{index: i, frac: w})
			}
		}
	}
	return out
}

type span struct {
	index int
	frac  float64
}

// Triplets are zero-based remap weights in destination-major order.
type Triplets struct {
	Dest   []int
	Src    []int
	Weight []float64
}

// Len returns the number of weights.
func (t Triplets) Len() int { return len(t.Weight) }

// OverlapWeights computes first-order conservative weights from src to dest.
func OverlapWeights(src, dest Grid) Triplets {
	fx := overlap1D(src.NX, dest.NX)
	fy := overlap1D(src.NY, dest.NY)

	var t Triplets
	for q := 0; q < dest.NY; q++ {
		for p := 0; p < dest.NX; p++ {
			d := q*dest.NX + p
			for _, sy := range fy[q] {
				for _, sx := range fx[p] {
					t.Dest = append(t.Dest, d)
					t.Src = append(t.Src, sy.index*src.NX+sx.index)
					t.Weight = append(t.Weight, sx.frac*sy.frac)
				}
			}
		}
	}
	return t
}

// Pattern selects the synthetic source field.
type Pattern string

const (
	// PatternConstant fills both fields with Value.
	PatternConstant Pattern = "constant"
	// PatternWave is a smooth positive field; the destination is the exact
	// remap of the source.
	PatternWave Pattern = "wave"
)

// Config describes a fixture set.
type Config struct {
	Src, Dest Grid
	Pattern   Pattern
	Value     float64

	// Layout is the weight file convention; defaults to SCRIP.
	Layout weights.Layout

	// Variable is the field variable name; defaults to "Array".
	Variable string
}

// Paths are the files written by Write.
type Paths struct {
	Weights string `json:"weights"`
	Src     string `json:"src"`
	Dest    string `json:"dest"`
}

// SourceField returns the source values for cfg.
func SourceField(cfg Config) []float64 {
	out := make([]float64, cfg.Src.Size())
	for j := 0; j < cfg.Src.NY; j++ {
		for i := 0; i < cfg.Src.NX; i++ {
			v := cfg.Value
			if cfg.Pattern == PatternWave {
				x := (float64(i) + 0.5) / float64(cfg.Src.NX)
				y := (float64(j) + 0.5) / float64(cfg.Src.NY)
				v = cfg.Value * (2 + math.Sin(2*math.Pi*x)*math.Cos(math.Pi*y))
			}
			out[j*cfg.Src.NX+i] = v
		}
	}
	return out
}

// Write generates weights.nc, src.nc and dest.nc under dir.
func Write(dir string, cfg Config) (Paths, error) {
	if cfg.Src.Size() == 0 || cfg.Dest.Size() == 0 {
		return Paths{}, fmt.Errorf("synth: grids must be non-empty (src %s, dest %s)", cfg.Src, cfg.Dest)
	}
	if cfg.Layout.Name == "" {
		cfg.Layout = weights.LayoutSCRIP
	}
	if cfg.Variable == "" {
		cfg.Variable = "Array"
	}
	if cfg.Pattern == "" {
		cfg.Pattern = PatternConstant
	}
	if cfg.Value == 0 {
		cfg.Value = 1
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("synth: %w", err)
	}

	t := OverlapWeights(cfg.Src, cfg.Dest)
	src := SourceField(cfg)

	var dest []float64
	switch cfg.Pattern {
	case PatternConstant:
		dest = make([]float64, cfg.Dest.Size())
		for i := range dest {
			dest[i] = cfg.Value
		}
	case PatternWave:
		m, err := weights.FromTriplets(t.Dest, t.Src, t.Weight, weights.Options{
			Origin:   weights.OriginZero,
			DestSize: cfg.Dest.Size(),
			SrcSize:  cfg.Src.Size(),
		})
		if err != nil {
			return Paths{}, fmt.Errorf("synth: %w", err)
		}
		if dest, err = m.Apply(src, nil); err != nil {
			return Paths{}, fmt.Errorf("synth: %w", err)
		}
	default:
		return Paths{}, fmt.Errorf("synth: unknown pattern %q", cfg.Pattern)
	}

	p := Paths{
		Weights: filepath.Join(dir, "weights.nc"),
		Src:     filepath.Join(dir, "src.nc"),
		Dest:    filepath.Join(dir, "dest.nc"),
	}
	if err := WriteWeights(p.Weights, cfg.Layout, t, cfg.Src.Size(), cfg.Dest.Size()); err != nil {
		return Paths{}, err
	}
	if err := WriteField(p.Src, cfg.Variable, cfg.Src, src); err != nil {
		return Paths{}, err
	}
	if err := WriteField(p.Dest, cfg.Variable, cfg.Dest, dest); err != nil {
		return Paths{}, err
	}
	return p, nil
}

// WriteWeights writes zero-based triplets t as a weight file in layout.
// Layouts whose default origin is one get one-based indices on disk.
func WriteWeights(path string, layout weights.Layout, t Triplets, srcSize, destSize int) error {
	shift := 0
	if layout.DefaultOrigin == weights.OriginOne {
		shift = 1
	}
	dest := make([]int32, t.Len())
	src := make([]int32, t.Len())
	for i := range t.Weight {
		dest[i] = int32(t.Dest[i] + shift)
		src[i] = int32(t.Src[i] + shift)
	}
	w := append([]float64(nil), t.Weight...)

	desc := dataset.FileSpec{
		Dims: []dataset.Dim{{Name: "num_links", Len: t.Len()}},
		Attrs: map[string]interface{}{
			"title":      "remapcheck synthetic conservative weights",
			"map_method": "Conservative remapping",
		},
	}
	if layout.DestSize != "" {
		desc.Dims = append(desc.Dims,
			dataset.Dim{Name: layout.DestSize, Len: destSize},
			dataset.Dim{Name: layout.SrcSize, Len: srcSize})
	}
	desc.Vars = []dataset.VarSpec{
		{Name: layout.Dest, Dims: []string{"num_links"}, Data: dest},
		{Name: layout.Src, Dims: []string{"num_links"}, Data: src},
		{Name: layout.Weight, Dims: []string{"num_links"}, Data: w},
	}
	if err := dataset.WriteNetCDF(path, desc); err != nil {
		return fmt.Errorf("synth: write weights: %w", err)
	}
	return nil
}

// WriteField writes values as a 2-D (ny, nx) variable.
func WriteField(path, variable string, g Grid, values []float64) error {
	err := dataset.WriteNetCDF(path, dataset.FileSpec{
		Dims: []dataset.Dim{{Name: "ny", Len: g.NY}, {Name: "nx", Len: g.NX}},
		Vars: []dataset.VarSpec{{
			Name: variable,
			Dims: []string{"ny", "nx"},
			Data: append([]float64(nil), values...),
		}},
	})
	if err != nil {
		return fmt.Errorf("synth: write field: %w", err)
	}
	return nil
}
