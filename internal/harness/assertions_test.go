package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/remapcheck/internal/conserve"
	"github.com/roach88/remapcheck/internal/weights"
)

func fl(f float64) *float64 { return &f }
func in(i int) *int         { return &i }

func TestEvaluateAssertions(t *testing.T) {
	report := &conserve.Report{
		RelativeError: 0.25,
		Matrix: weights.Stats{
			Layout:    "scrip",
			Origin:    "one",
			NNZ:       10,
			EmptyRows: 2,
		},
	}

	tests := []struct {
		name      string
		assertion Assertion
		fails     bool
	}{
		{"below holds", Assertion{Type: AssertRelativeErrorBelow, Value: fl(0.5)}, false},
		{"below is strict", Assertion{Type: AssertRelativeErrorBelow, Value: fl(0.25)}, true},
		{"above is inclusive", Assertion{Type: AssertRelativeErrorAbove, Value: fl(0.25)}, false},
		{"above fails", Assertion{Type: AssertRelativeErrorAbove, Value: fl(0.3)}, true},
		{"layout", Assertion{Type: AssertLayout, Equals: "scrip"}, false},
		{"layout mismatch", Assertion{Type: AssertLayout, Equals: "esmf"}, true},
		{"origin", Assertion{Type: AssertOrigin, Equals: "one"}, false},
		{"origin mismatch", Assertion{Type: AssertOrigin, Equals: "zero"}, true},
		{"nnz", Assertion{Type: AssertNNZ, Count: in(10)}, false},
		{"nnz mismatch", Assertion{Type: AssertNNZ, Count: in(9)}, true},
		{"empty rows", Assertion{Type: AssertEmptyRows, Count: in(2)}, false},
		{"empty rows mismatch", Assertion{Type: AssertEmptyRows, Count: in(0)}, true},
		{"unknown type", Assertion{Type: "trace_order"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(report, []Assertion{tt.assertion})
			if tt.fails {
				assert.Len(t, errs, 1)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestEvaluateAssertions_Message(t *testing.T) {
	report := &conserve.Report{Matrix: weights.Stats{Layout: "generic"}}
	errs := EvaluateAssertions(report, []Assertion{{Type: AssertLayout, Equals: "scrip"}})
	assert.Equal(t, []string{"assertion failed: layout (expected scrip, actual generic)"}, errs)
}

func TestEvaluateAssertions_NilReport(t *testing.T) {
	errs := EvaluateAssertions(nil, []Assertion{
		{Type: AssertNNZ, Count: in(1)},
		{Type: AssertLayout, Equals: "esmf"},
	})
	assert.Len(t, errs, 2)
	assert.Contains(t, errs[0], "verification failed")

	assert.Empty(t, EvaluateAssertions(nil, nil))
}
