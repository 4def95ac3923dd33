package harness

import "github.com/roach88/remapcheck/internal/conserve"

// Result is the outcome of running one scenario.
type Result struct {
	Scenario   string  `json:"scenario"`
	Resolution string  `json:"resolution,omitempty"`
	Expected   string  `json:"expected"`
	Tolerance  float64 `json:"tolerance"`

	// Outcome is conserved or violated when a report was produced, and the
	// error outcome (io_error, shape_mismatch, degenerate) otherwise.
	Outcome string `json:"outcome"`

	// Pass is true when Outcome equals Expected and every assertion held.
	Pass bool `json:"pass"`

	Report *conserve.Report `json:"report,omitempty"`

	// ErrorKind and Error describe a failed verification.
	ErrorKind string `json:"error_kind,omitempty"`
	Error     string `json:"error,omitempty"`

	// Errors lists expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// RunID is set when the run was recorded in a store.
	RunID string `json:"run_id,omitempty"`
}

// newResult starts a passing result for s.
func newResult(s *Scenario) *Result {
	return &Result{
		Scenario:   s.Name,
		Resolution: s.Resolution,
		Expected:   s.Expect,
		Tolerance:  s.EffectiveTolerance(),
		Pass:       true,
		Errors:     []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// outcomeForKind maps a verifier error kind to an expectation name.
func outcomeForKind(k conserve.Kind) string {
	switch k {
	case conserve.KindShape:
		return OutcomeShape
	case conserve.KindDegenerate:
		return OutcomeDegenerate
	default:
		return OutcomeIOError
	}
}
