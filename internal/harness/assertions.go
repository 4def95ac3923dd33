package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/remapcheck/internal/conserve"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "assertion failed: %s", e.Type)
	fmt.Fprintf(&buf, " (expected %s, actual %s)", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against report and returns the
// failure messages. A nil report fails every assertion.
func EvaluateAssertions(report *conserve.Report, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(report, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(r *conserve.Report, a Assertion) error {
	if r == nil {
		return &AssertionError{Type: a.Type, Expected: "a report", Actual: "verification failed"}
	}

	switch a.Type {
	case AssertRelativeErrorBelow:
		if !(r.RelativeError < *a.Value) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("relative error < %g", *a.Value),
				Actual:   fmt.Sprintf("%g", r.RelativeError),
			}
		}
	case AssertRelativeErrorAbove:
		if !(r.RelativeError >= *a.Value) {
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("relative error >= %g", *a.Value),
				Actual:   fmt.Sprintf("%g", r.RelativeError),
			}
		}
	case AssertLayout:
		if r.Matrix.Layout != a.Equals {
			return &AssertionError{Type: a.Type, Expected: a.Equals, Actual: r.Matrix.Layout}
		}
	case AssertOrigin:
		if r.Matrix.Origin != a.Equals {
			return &AssertionError{Type: a.Type, Expected: a.Equals, Actual: r.Matrix.Origin}
		}
	case AssertNNZ:
		if r.Matrix.NNZ != *a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(r.Matrix.NNZ)}
		}
	case AssertEmptyRows:
		if r.Matrix.EmptyRows != *a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(*a.Count), Actual: fmt.Sprint(r.Matrix.EmptyRows)}
		}
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
	return nil
}
