package harness

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/remapcheck/internal/conserve"
	"github.com/roach88/remapcheck/internal/weights"
)

// Scenario is one conservation check described in YAML.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Resolution labels the grid pair: one_deg, quarter_deg, tenth_deg or custom.
	Resolution string `yaml:"resolution,omitempty"`

	// Weights, Src and Dest are file paths, relative to the scenario file
	// unless absolute.
	Weights string `yaml:"weights"`
	Src     string `yaml:"src"`
	Dest    string `yaml:"dest"`

	SrcVar   string `yaml:"src_var,omitempty"`
	DestVar  string `yaml:"dest_var,omitempty"`
	SrcMask  string `yaml:"src_mask,omitempty"`
	DestMask string `yaml:"dest_mask,omitempty"`

	// Layout forces a weight file convention instead of detecting it.
	Layout       string `yaml:"layout,omitempty"`
	WeightColumn int    `yaml:"weight_column,omitempty"`
	IndexOrigin  string `yaml:"index_origin,omitempty"`

	// Tolerance defaults to conserve.DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Expect is the outcome the verification must reach.
	Expect string `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`

	// Path is the file the scenario was loaded from; empty for scenarios
	// built in code.
	Path string `yaml:"-"`
}

// Assertion checks one property of a successful report.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Value is the threshold for relative_error_below / relative_error_above.
	Value *float64 `yaml:"value,omitempty"`

	// Equals is the expected name for layout / origin.
	Equals string `yaml:"equals,omitempty"`

	// Count is the expected number for nnz / empty_rows.
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertRelativeErrorBelow = "relative_error_below"
	AssertRelativeErrorAbove = "relative_error_above"
	AssertLayout             = "layout"
	AssertOrigin             = "origin"
	AssertNNZ                = "nnz"
	AssertEmptyRows          = "empty_rows"
)

// Expected outcomes. The first two are conserve.Outcome values, the rest
// name conserve error kinds.
const (
	OutcomeConserved  = string(conserve.OutcomeConserved)
	OutcomeViolated   = string(conserve.OutcomeViolated)
	OutcomeIOError    = "io_error"
	OutcomeShape      = "shape_mismatch"
	OutcomeDegenerate = "degenerate"
)

// EffectiveTolerance returns Tolerance, or the default when unset.
func (s *Scenario) EffectiveTolerance() float64 {
	if s.Tolerance > 0 {
		return s.Tolerance
	}
	return conserve.DefaultTolerance
}

// VerifyOptions translates the scenario into verifier options.
func (s *Scenario) VerifyOptions() (conserve.Options, error) {
	origin, err := weights.ParseOrigin(s.IndexOrigin)
	if err != nil {
		return conserve.Options{}, err
	}
	opts := conserve.Options{
		Tolerance:    s.EffectiveTolerance(),
		Origin:       origin,
		WeightColumn: s.WeightColumn,
		SrcVar:       s.SrcVar,
		DestVar:      s.DestVar,
		SrcMaskVar:   s.SrcMask,
		DestMaskVar:  s.DestMask,
	}
	if s.Layout != "" {
		l, err := weights.LayoutByName(s.Layout)
		if err != nil {
			return conserve.Options{}, err
		}
		opts.Layout = &l
	}
	return opts, nil
}

// LoadScenario reads a scenario file. Unknown fields, schema violations and
// missing required fields are errors. Relative artifact paths are resolved
// against the scenario file's directory; the files themselves are not
// checked, so a missing artifact surfaces as an io_error outcome.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decode catches typos like "tolerence:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	base := filepath.Dir(path)
	scenario.Weights = resolve(base, scenario.Weights)
	scenario.Src = resolve(base, scenario.Src)
	scenario.Dest = resolve(base, scenario.Dest)
	scenario.Path = path

	return &scenario, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// validateScenario checks required fields and per-assertion arguments.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Weights == "" || s.Src == "" || s.Dest == "" {
		return fmt.Errorf("weights, src and dest are required")
	}
	if s.Tolerance < 0 {
		return fmt.Errorf("tolerance must be positive, got %v", s.Tolerance)
	}
	if _, err := weights.ParseOrigin(s.IndexOrigin); err != nil {
		return err
	}
	if s.Layout != "" {
		if _, err := weights.LayoutByName(s.Layout); err != nil {
			return err
		}
	}

	switch s.Expect {
	case OutcomeConserved, OutcomeViolated, OutcomeIOError, OutcomeShape, OutcomeDegenerate:
	case "":
		return fmt.Errorf("expect is required")
	default:
		return fmt.Errorf("unknown expect %q", s.Expect)
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRelativeErrorBelow, AssertRelativeErrorAbove:
		if a.Value == nil {
			return fmt.Errorf("assertions[%d]: value is required for %s", index, a.Type)
		}
	case AssertLayout:
		if _, err := weights.LayoutByName(a.Equals); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertOrigin:
		if a.Equals != "zero" && a.Equals != "one" {
			return fmt.Errorf("assertions[%d]: origin must equal zero or one, got %q", index, a.Equals)
		}
	case AssertNNZ, AssertEmptyRows:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: count is required for %s", index, a.Type)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// FindScenarioFiles lists the YAML files under dir in lexical order,
// skipping golden directories. A non-empty filter is a glob matched
// against the file name without extension.
func FindScenarioFiles(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && d.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	return files, err
}
