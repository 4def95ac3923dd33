package dataset

import (
	"fmt"

	"github.com/ctessum/sparse"
)

// Field is a scalar field on a grid's flattened index space.
//
// Data carries the grid shape so the field can be reshaped to 2-D for
// diagnostics; Elements is always row-major. Valid is nil when every cell is
// valid.
type Field struct {
	Name  string
	Data  *sparse.DenseArray
	Valid []bool
}

// NewField copies values into a new field with the given shape. An empty
// shape means a 1-D field of len(values).
func NewField(name string, values []float64, shape ...int) (*Field, error) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	n := 1
	for _, d := range shape {
		if d < 0 {
			return nil, &Error{Code: ErrCodeLayout, Variable: name,
				Message: fmt.Sprintf("negative dimension in shape %v", shape)}
		}
		n *= d
	}
	if n != len(values) {
		return nil, &Error{Code: ErrCodeLayout, Variable: name,
			Message: fmt.Sprintf("shape %v holds %d cells but %d values were given", shape, n, len(values))}
	}
	if n == 0 {
		return &Field{Name: name, Data: &sparse.DenseArray{Shape: shape}}, nil
	}
	data := sparse.ZerosDense(shape...)
	copy(data.Elements, values)
	return &Field{Name: name, Data: data}, nil
}

// MustField is NewField for literals known to be well formed.
func MustField(name string, values []float64, shape ...int) *Field {
	f, err := NewField(name, values, shape...)
	if err != nil {
		panic(err)
	}
	return f
}

// Len returns the flattened cell count.
func (f *Field) Len() int {
	return len(f.Data.Elements)
}

// Shape returns the grid shape.
func (f *Field) Shape() []int {
	return f.Data.Shape
}

// Values returns the flattened values. The slice is shared with the field.
func (f *Field) Values() []float64 {
	return f.Data.Elements
}

// IsValid reports whether cell i takes part in sums.
func (f *Field) IsValid(i int) bool {
	return f.Valid == nil || f.Valid[i]
}

// ValidCount returns the number of valid cells.
func (f *Field) ValidCount() int {
	if f.Valid == nil {
		return f.Len()
	}
	n := 0
	for _, ok := range f.Valid {
		if ok {
			n++
		}
	}
	return n
}

// Sum returns the sum and absolute sum over valid cells, accumulated in
// index order so repeated calls are bit-identical.
func (f *Field) Sum() (sum, abs float64) {
	for i, x := range f.Data.Elements {
		if !f.IsValid(i) {
			continue
		}
		sum += x
		if x < 0 {
			abs -= x
		} else {
			abs += x
		}
	}
	return sum, abs
}
