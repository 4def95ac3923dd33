package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Dataset is a read-only collection of named array variables.
//
// Implementations hold at most one open file handle; Close releases it and
// must be safe to call more than once.
type Dataset interface {
	// Variables returns the variable names in a stable order.
	Variables() []string

	// Dimensions returns all named dimensions and their lengths.
	Dimensions() map[string]int

	// Read loads the full contents of a variable.
	Read(name string) (*Variable, error)

	// Close releases any underlying resources.
	Close() error
}

// Opener opens a dataset by path.
type Opener func(path string) (Dataset, error)

// Variable is a fully loaded array variable.
type Variable struct {
	Name  string
	Dims  []string
	Shape []int

	// Values holds the row-major flattened contents widened to float64.
	Values []float64

	// Fill is the declared fill value, valid only when HasFill is true.
	Fill    float64
	HasFill bool
}

// Len returns the flattened element count.
func (v *Variable) Len() int {
	return len(v.Values)
}

// Rank returns the number of dimensions.
func (v *Variable) Rank() int {
	return len(v.Shape)
}

// Ints converts the variable to integers. Non-integral or non-finite values
// are rejected so that a float variable cannot be misread as an index list.
func (v *Variable) Ints() ([]int, error) {
	out := make([]int, len(v.Values))
	for i, f := range v.Values {
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return nil, &Error{
				Code:     ErrCodeLayout,
				Variable: v.Name,
				Message:  fmt.Sprintf("element %d is not an integer: %v", i, f),
			}
		}
		out[i] = int(f)
	}
	return out, nil
}

// Column returns column c of a rank-2 variable, or the variable itself for
// rank 1 (only column 0 exists then).
func (v *Variable) Column(c int) ([]float64, error) {
	switch v.Rank() {
	case 1:
		if c != 0 {
			return nil, &Error{Code: ErrCodeLayout, Variable: v.Name,
				Message: fmt.Sprintf("column %d requested from a 1-D variable", c)}
		}
		return v.Values, nil
	case 2:
		rows, cols := v.Shape[0], v.Shape[1]
		if c < 0 || c >= cols {
			return nil, &Error{Code: ErrCodeLayout, Variable: v.Name,
				Message: fmt.Sprintf("column %d out of range [0,%d)", c, cols)}
		}
		out := make([]float64, rows)
		for i := 0; i < rows; i++ {
			out[i] = v.Values[i*cols+c]
		}
		return out, nil
	default:
		return nil, &Error{Code: ErrCodeLayout, Variable: v.Name,
			Message: fmt.Sprintf("expected 1-D or 2-D variable, got %d dimensions", v.Rank())}
	}
}

// Field converts the variable into a Field, deriving the validity mask from
// the fill value when one is declared.
func (v *Variable) Field() (*Field, error) {
	f, err := NewField(v.Name, v.Values, v.Shape...)
	if err != nil {
		return nil, err
	}
	if v.HasFill {
		valid := make([]bool, len(v.Values))
		for i, x := range v.Values {
			valid[i] = !sameValue(x, v.Fill)
		}
		f.Valid = valid
	}
	return f, nil
}

// sameValue compares for fill detection; NaN fill values match NaN cells.
func sameValue(a, b float64) bool {
	if math.IsNaN(b) {
		return math.IsNaN(a)
	}
	return a == b
}

// ErrorCode categorizes dataset errors.
type ErrorCode string

const (
	// ErrCodeOpen indicates the file could not be opened or parsed.
	ErrCodeOpen ErrorCode = "OPEN_FAILED"

	// ErrCodeMissingVariable indicates a requested variable is absent.
	ErrCodeMissingVariable ErrorCode = "MISSING_VARIABLE"

	// ErrCodeUnsupportedType indicates an external type that cannot be widened.
	ErrCodeUnsupportedType ErrorCode = "UNSUPPORTED_TYPE"

	// ErrCodeLayout indicates the variable exists but has the wrong shape or content.
	ErrCodeLayout ErrorCode = "LAYOUT"

	// ErrCodeWrite indicates a failure while writing a dataset.
	ErrCodeWrite ErrorCode = "WRITE_FAILED"
)

// Error is returned by all dataset operations.
type Error struct {
	Code     ErrorCode
	Path     string
	Variable string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Variable != "" {
		msg += fmt.Sprintf(" [%s]", e.Variable)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsMissingVariable reports whether err is a missing-variable error.
func IsMissingVariable(err error) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == ErrCodeMissingVariable
	}
	return false
}

// HasVariables reports whether ds contains every named variable.
func HasVariables(ds Dataset, names ...string) bool {
	have := make(map[string]bool)
	for _, v := range ds.Variables() {
		have[v] = true
	}
	for _, n := range names {
		if !have[n] {
			return false
		}
	}
	return true
}

// ReadField opens path, reads one variable as a Field and closes the file.
// The optional maskVar names a variable whose non-zero cells are valid; it is
// combined with any fill-value mask.
func ReadField(open Opener, path, name, maskVar string) (*Field, error) {
	ds, err := open(path)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	v, err := ds.Read(name)
	if err != nil {
		return nil, withPath(err, path)
	}
	f, err := v.Field()
	if err != nil {
		return nil, withPath(err, path)
	}
	if maskVar == "" {
		return f, nil
	}

	m, err := ds.Read(maskVar)
	if err != nil {
		return nil, withPath(err, path)
	}
	if m.Len() != f.Len() {
		return nil, &Error{Code: ErrCodeLayout, Path: path, Variable: maskVar,
			Message: fmt.Sprintf("mask has %d cells, field %q has %d", m.Len(), name, f.Len())}
	}
	if f.Valid == nil {
		f.Valid = make([]bool, f.Len())
		for i := range f.Valid {
			f.Valid[i] = true
		}
	}
	for i, x := range m.Values {
		if x == 0 {
			f.Valid[i] = false
		}
	}
	return f, nil
}

// withPath fills in the path on a dataset error if it is missing.
func withPath(err error, path string) error {
	var de *Error
	if errors.As(err, &de) && de.Path == "" {
		cp := *de
		cp.Path = path
		return &cp
	}
	return err
}

// sortedKeys returns map keys in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
