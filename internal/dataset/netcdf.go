package dataset

import (
	"fmt"
	"os"

	"github.com/ctessum/cdf"
)

// netcdfDataset is a Dataset backed by a netCDF classic file.
type netcdfDataset struct {
	path string
	fh   *os.File
	f    *cdf.File
}

// OpenNetCDF opens a netCDF classic file for reading.
// The returned Dataset owns the file handle; callers must Close it.
func OpenNetCDF(path string) (Dataset, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, &Error{Code: ErrCodeOpen, Path: path, Err: err}
	}

	f, err := cdf.Open(fh)
	if err != nil {
		fh.Close()
		return nil, &Error{Code: ErrCodeOpen, Path: path, Message: "not a netCDF classic file", Err: err}
	}

	return &netcdfDataset{path: path, fh: fh, f: f}, nil
}

// Variables returns variable names in file order.
func (d *netcdfDataset) Variables() []string {
	return d.f.Header.Variables()
}

// Dimensions returns all dimensions declared in the header.
func (d *netcdfDataset) Dimensions() map[string]int {
	out := make(map[string]int)

	names := d.f.Header.Dimensions("")
	lengths := d.f.Header.Lengths("")
	if len(names) == len(lengths) {
		for i, n := range names {
			out[n] = lengths[i]
		}
	}

	// Per-variable lengths resolve the record dimension to its record count.
	for _, v := range d.f.Header.Variables() {
		vn := d.f.Header.Dimensions(v)
		vl := d.f.Header.Lengths(v)
		for i := range vn {
			if i < len(vl) {
				out[vn[i]] = vl[i]
			}
		}
	}
	return out
}

// Read loads a whole variable and widens it to float64.
func (d *netcdfDataset) Read(name string) (*Variable, error) {
	if !HasVariables(d, name) {
		return nil, &Error{Code: ErrCodeMissingVariable, Path: d.path, Variable: name,
			Message: fmt.Sprintf("variable not found (have %v)", d.Variables())}
	}

	r := d.f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, &Error{Code: ErrCodeOpen, Path: d.path, Variable: name, Message: "read failed", Err: err}
	}

	values, err := widen(buf)
	if err != nil {
		return nil, &Error{Code: ErrCodeUnsupportedType, Path: d.path, Variable: name, Err: err}
	}

	v := &Variable{
		Name:   name,
		Dims:   d.f.Header.Dimensions(name),
		Shape:  d.f.Header.Lengths(name),
		Values: values,
	}

	n := 1
	for _, l := range v.Shape {
		n *= l
	}
	if n != len(values) {
		return nil, &Error{Code: ErrCodeLayout, Path: d.path, Variable: name,
			Message: fmt.Sprintf("dims are %d but array length is %d", n, len(values))}
	}

	for _, attr := range []string{"_FillValue", "missing_value"} {
		if fill, ok := scalarAttribute(d.f.Header.GetAttribute(name, attr)); ok {
			v.Fill, v.HasFill = fill, true
			break
		}
	}
	return v, nil
}

// Close releases the file handle. Safe to call more than once.
func (d *netcdfDataset) Close() error {
	if d.fh == nil {
		return nil
	}
	err := d.fh.Close()
	d.fh = nil
	return err
}

// widen converts a typed slice from the cdf reader to float64.
func widen(buf interface{}) ([]float64, error) {
	switch b := buf.(type) {
	case []float64:
		return b, nil
	case []float32:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	case []int32:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	case []int16:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	case []int8:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	case []uint8:
		out := make([]float64, len(b))
		for i, x := range b {
			out[i] = float64(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot widen %T to float64", buf)
	}
}

// scalarAttribute returns the first element of a numeric attribute.
func scalarAttribute(attr interface{}) (float64, bool) {
	if attr == nil {
		return 0, false
	}
	vals, err := widen(attr)
	if err != nil || len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}

// Dim is a named fixed-length dimension.
type Dim struct {
	Name string
	Len  int
}

// VarSpec describes one variable to write. Data must be []float64, []float32
// or []int32 with as many elements as the product of its dimensions.
type VarSpec struct {
	Name  string
	Dims  []string
	Data  interface{}
	Attrs map[string]interface{}
}

// FileSpec describes a netCDF file to write.
type FileSpec struct {
	Dims  []Dim
	Vars  []VarSpec
	Attrs map[string]interface{}
}

// WriteNetCDF creates path and writes desc into it as a netCDF classic file.
func WriteNetCDF(path string, desc FileSpec) error {
	names := make([]string, len(desc.Dims))
	lengths := make([]int, len(desc.Dims))
	for i, d := range desc.Dims {
		if d.Len <= 0 {
			// Length 0 would declare a record dimension.
			return &Error{Code: ErrCodeWrite, Path: path,
				Message: fmt.Sprintf("dimension %q must have positive length, got %d", d.Name, d.Len)}
		}
		names[i], lengths[i] = d.Name, d.Len
	}

	h := cdf.NewHeader(names, lengths)
	for _, k := range sortedKeys(desc.Attrs) {
		h.AddAttribute("", k, desc.Attrs[k])
	}
	for _, v := range desc.Vars {
		proto, err := prototype(v.Data)
		if err != nil {
			return &Error{Code: ErrCodeWrite, Path: path, Variable: v.Name, Err: err}
		}
		h.AddVariable(v.Name, v.Dims, proto)
		for _, k := range sortedKeys(v.Attrs) {
			h.AddAttribute(v.Name, k, v.Attrs[k])
		}
	}
	h.Define()

	fh, err := os.Create(path)
	if err != nil {
		return &Error{Code: ErrCodeWrite, Path: path, Err: err}
	}
	defer fh.Close()

	f, err := cdf.Create(fh, h)
	if err != nil {
		return &Error{Code: ErrCodeWrite, Path: path, Message: "writing header", Err: err}
	}

	for _, v := range desc.Vars {
		end := f.Header.Lengths(v.Name)
		start := make([]int, len(end))
		w := f.Writer(v.Name, start, end)
		if _, err := w.Write(v.Data); err != nil {
			return &Error{Code: ErrCodeWrite, Path: path, Variable: v.Name, Err: err}
		}
	}
	return fh.Sync()
}

// prototype returns a one-element slice of the same external type as data.
func prototype(data interface{}) (interface{}, error) {
	switch data.(type) {
	case []float64:
		return []float64{0}, nil
	case []float32:
		return []float32{0}, nil
	case []int32:
		return []int32{0}, nil
	default:
		return nil, fmt.Errorf("unsupported data type %T", data)
	}
}
