package conserve

import (
	"math"

	"go.uber.org/zap"

	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/weights"
)

// DefaultTolerance is the relative error below which a remap counts as
// conservative.
const DefaultTolerance = 1e-9

// DefaultVariable is the field variable name written by the coupled test models.
const DefaultVariable = "Array"

// Outcome classifies a successfully computed report.
type Outcome string

const (
	OutcomeConserved Outcome = "conserved"
	OutcomeViolated  Outcome = "violated"
)

// Options configures file-based verification. The zero value reads netCDF
// files, variable "Array", infers the index origin and uses DefaultTolerance.
type Options struct {
	Tolerance float64

	Origin       weights.Origin
	Layout       *weights.Layout
	WeightColumn int

	SrcVar      string
	DestVar     string
	SrcMaskVar  string
	DestMaskVar string

	// KeepReconstructed stores the reconstructed destination field on the report.
	KeepReconstructed bool

	Open   dataset.Opener
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.SrcVar == "" {
		o.SrcVar = DefaultVariable
	}
	if o.DestVar == "" {
		o.DestVar = DefaultVariable
	}
	if o.Open == nil {
		o.Open = dataset.OpenNetCDF
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Report is the result of one verification.
type Report struct {
	RelativeError    float64 `json:"relative_error"`
	ReconstructedSum float64 `json:"reconstructed_sum"`
	DestSum          float64 `json:"dest_sum"`
	SrcSum           float64 `json:"src_sum"`

	SrcValid  int `json:"src_valid"`
	DestValid int `json:"dest_valid"`

	Matrix weights.Stats `json:"matrix"`

	// Reconstructed is set only when requested.
	Reconstructed *dataset.Field `json:"-"`
}

// Check classifies a relative error against tol. A non-positive tol means
// DefaultTolerance.
func Check(relErr, tol float64) Outcome {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if relErr < tol {
		return OutcomeConserved
	}
	return OutcomeViolated
}

// Outcome classifies the report against tol.
func (r *Report) Outcome(tol float64) Outcome {
	return Check(r.RelativeError, tol)
}

// RelativeError applies m to src and returns the global relative
// conservation error against the independently produced dest field.
func RelativeError(m *weights.Matrix, src, dest *dataset.Field) (float64, error) {
	r, err := Compute(m, src, dest, false)
	if err != nil {
		return 0, err
	}
	return r.RelativeError, nil
}

// Compute reconstructs the destination field from src and compares its
// global sum with the sum of dest.
//
// Sums run over cells that are valid in dest, in index order. Invalid source
// cells contribute nothing to the reconstruction.
func Compute(m *weights.Matrix, src, dest *dataset.Field, keep bool) (*Report, error) {
	if src.Len() != m.SrcSize() {
		return nil, shapeError("source field %q has %d cells, weight matrix source space has %d",
			src.Name, src.Len(), m.SrcSize())
	}
	if dest.Len() != m.DestSize() {
		return nil, shapeError("destination field %q has %d cells, weight matrix destination space has %d",
			dest.Name, dest.Len(), m.DestSize())
	}
	if dest.Valid != nil && len(dest.Valid) != dest.Len() {
		return nil, shapeError("destination mask has %d cells, field %q has %d",
			len(dest.Valid), dest.Name, dest.Len())
	}

	rec, err := m.Apply(src.Values(), src.Valid)
	if err != nil {
		return nil, classify(err, "")
	}

	destSum, destAbs := dest.Sum()
	recSum := 0.0
	for i, x := range rec {
		if dest.IsValid(i) {
			recSum += x
		}
	}
	srcSum, _ := src.Sum()

	if math.IsNaN(destSum) || math.IsInf(destSum, 0) || math.IsNaN(recSum) || math.IsInf(recSum, 0) {
		return nil, &Error{Kind: KindDegenerate, Message: "field sums are not finite"}
	}
	if destAbs == 0 || math.Abs(destSum) <= epsilon*destAbs {
		return nil, &Error{Kind: KindDegenerate, Message: "destination field sums to zero; relative error is undefined"}
	}

	r := &Report{
		RelativeError:    math.Abs(recSum-destSum) / math.Abs(destSum),
		ReconstructedSum: recSum,
		DestSum:          destSum,
		SrcSum:           srcSum,
		SrcValid:         src.ValidCount(),
		DestValid:        dest.ValidCount(),
		Matrix:           m.Stats(),
	}

	if keep {
		f, err := dataset.NewField("reconstructed", rec, dest.Shape()...)
		if err != nil {
			return nil, classify(err, "")
		}
		f.Valid = dest.Valid
		r.Reconstructed = f
	}
	return r, nil
}

// epsilon is the float64 machine epsilon.
var epsilon = math.Nextafter(1, 2) - 1

// VerifyFiles loads the weight matrix and both field snapshots and computes
// the report. Every file is opened and closed within the call.
func VerifyFiles(weightsPath, srcPath, destPath string, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	src, err := dataset.ReadField(opts.Open, srcPath, opts.SrcVar, opts.SrcMaskVar)
	if err != nil {
		return nil, classify(err, srcPath)
	}
	dest, err := dataset.ReadField(opts.Open, destPath, opts.DestVar, opts.DestMaskVar)
	if err != nil {
		return nil, classify(err, destPath)
	}

	return VerifyFields(weightsPath, src, dest, opts)
}

// VerifyFields is VerifyFiles for fields already in memory.
func VerifyFields(weightsPath string, src, dest *dataset.Field, opts Options) (*Report, error) {
	opts = opts.withDefaults()

	m, err := weights.LoadFile(opts.Open, weightsPath, weights.Options{
		Origin:       opts.Origin,
		Layout:       opts.Layout,
		WeightColumn: opts.WeightColumn,
		DestHint:     dest.Len(),
		SrcHint:      src.Len(),
		Logger:       opts.Logger,
	})
	if err != nil {
		return nil, classify(err, weightsPath)
	}

	r, err := Compute(m, src, dest, opts.KeepReconstructed)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("conservation computed",
		zap.String("weights", weightsPath),
		zap.String("layout", r.Matrix.Layout),
		zap.String("origin", r.Matrix.Origin),
		zap.Int("nnz", r.Matrix.NNZ),
		zap.Float64("relative_error", r.RelativeError),
		zap.Float64("tolerance", opts.Tolerance),
	)
	return r, nil
}
