package dataset

import "fmt"

// Memory is an in-memory Dataset.
type Memory struct {
	Vars map[string]*Variable
	Dims map[string]int
}

// NewMemory creates an empty in-memory dataset.
func NewMemory() *Memory {
	return &Memory{
		Vars: make(map[string]*Variable),
		Dims: make(map[string]int),
	}
}

// Add registers a 1-D variable under a dimension of the same length. It
// returns m for chaining.
func (m *Memory) Add(name, dim string, values []float64) *Memory {
	m.Dims[dim] = len(values)
	m.Vars[name] = &Variable{
		Name:   name,
		Dims:   []string{dim},
		Shape:  []int{len(values)},
		Values: values,
	}
	return m
}

// AddVariable registers a variable as is.
func (m *Memory) AddVariable(v *Variable) *Memory {
	for i, d := range v.Dims {
		if i < len(v.Shape) {
			m.Dims[d] = v.Shape[i]
		}
	}
	m.Vars[v.Name] = v
	return m
}

// Variables returns the variable names in lexical order.
func (m *Memory) Variables() []string {
	return sortedKeys(m.Vars)
}

// Dimensions returns a copy of the dimension table.
func (m *Memory) Dimensions() map[string]int {
	out := make(map[string]int, len(m.Dims))
	for k, v := range m.Dims {
		out[k] = v
	}
	return out
}

// Read returns a copy of the variable so callers cannot mutate the dataset.
func (m *Memory) Read(name string) (*Variable, error) {
	v, ok := m.Vars[name]
	if !ok {
		return nil, &Error{Code: ErrCodeMissingVariable, Variable: name,
			Message: fmt.Sprintf("variable not found (have %v)", m.Variables())}
	}
	cp := *v
	cp.Values = append([]float64(nil), v.Values...)
	cp.Shape = append([]int(nil), v.Shape...)
	cp.Dims = append([]string(nil), v.Dims...)
	return &cp, nil
}

// Close is a no-op.
func (m *Memory) Close() error {
	return nil
}

// MemoryOpener returns an Opener that serves datasets from a path-keyed map.
func MemoryOpener(files map[string]*Memory) Opener {
	return func(path string) (Dataset, error) {
		ds, ok := files[path]
		if !ok {
			return nil, &Error{Code: ErrCodeOpen, Path: path, Message: "no such dataset"}
		}
		return ds, nil
	}
}
