package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/roach88/remapcheck/internal/harness"
	"github.com/roach88/remapcheck/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)

	// Tokens overrides the batch token generator (for testing).
	Tokens store.TokenGenerator
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name          string   `json:"name"`
	Pass          bool     `json:"pass"`
	Outcome       string   `json:"outcome,omitempty"`
	RelativeError *float64 `json:"relative_error,omitempty"`
	RunID         string   `json:"run_id,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	return newTestCommand(&TestOptions{RootOptions: rootOpts})
}

func newTestCommand(opts *TestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conservation scenarios",
		Long: `Run every YAML scenario under a directory.

Each scenario names a weight file and two field snapshots and the outcome
the verification must reach. When <dir>/golden/<scenario>.golden exists the
report snapshot must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  remapcheck test ./scenarios
  remapcheck test ./scenarios --filter "*_one_deg"
  remapcheck test ./scenarios --update
  remapcheck test ./scenarios --parallel 8 --db runs.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().Int("parallel", runtime.GOMAXPROCS(0), "scenarios to run concurrently")
	cmd.Flags().String("db", "", "record runs in this SQLite database")

	return cmd
}

// loaded is a scenario file after loading; exactly one of scenario and err
// is set.
type loaded struct {
	file     string
	scenario *harness.Scenario
	err      error
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}

	// Validate directory
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	scenarioFiles, err := harness.FindScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd.OutOrStdout(), TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	items := make([]loaded, len(scenarioFiles))
	var scenarios []*harness.Scenario
	for i, file := range scenarioFiles {
		s, err := harness.LoadScenario(file)
		items[i] = loaded{file: file, scenario: s, err: err}
		if err == nil {
			scenarios = append(scenarios, s)
		}
	}

	runOpts := harness.Options{
		Parallel: cfg.GetInt("parallel"),
		Logger:   opts.logger(),
		Tokens:   opts.Tokens,
	}
	if db := cfg.GetString("db"); db != "" {
		st, err := store.Open(db)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		runOpts.Store = st
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := harness.RunAll(ctx, scenarios, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenarios", err)
	}

	w := cmd.OutOrStdout()
	text := opts.Format != "json"
	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(items)),
		Total:     len(items),
	}
	next := 0
	for _, item := range items {
		var sr ScenarioResult
		if item.err != nil {
			sr = loadFailure(item.file, item.err)
		} else {
			sr = checkScenario(item.file, results[next], opts.Update)
			next++
		}
		if text {
			printScenario(w, sr, opts.Update)
		}
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if !text {
		return outputTestJSON(w, result)
	}
	return outputTestText(w, result)
}

func loadFailure(file string, err error) ScenarioResult {
	return ScenarioResult{
		Name:   filepath.Base(file),
		Pass:   false,
		Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
	}
}

// checkScenario combines the run result with the golden comparison.
func checkScenario(file string, r *harness.Result, update bool) ScenarioResult {
	sr := ScenarioResult{
		Name:    r.Scenario,
		Pass:    r.Pass,
		Outcome: r.Outcome,
		RunID:   r.RunID,
		Errors:  r.Errors,
	}
	if r.Report != nil {
		rel := r.Report.RelativeError
		sr.RelativeError = &rel
	}

	goldenPath := harness.GoldenPath(file)
	if update {
		if err := harness.WriteGolden(goldenPath, r); err != nil {
			sr.Pass = false
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		}
		return sr
	}

	match, err := harness.CompareGolden(goldenPath, r)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// No golden file - outcome and assertions only
	case err != nil:
		sr.Pass = false
		sr.Errors = append(sr.Errors, fmt.Sprintf("golden comparison failed: %v", err))
	case !match:
		sr.Pass = false
		sr.Errors = append(sr.Errors, "report does not match golden file (run with --update to regenerate)")
	}
	return sr
}

func printScenario(w io.Writer, sr ScenarioResult, update bool) {
	if !sr.Pass {
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
		return
	}
	switch {
	case update:
		fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
	case sr.RelativeError != nil:
		fmt.Fprintf(w, "✓ %s (%s, relative error %g)\n", sr.Name, sr.Outcome, *sr.RelativeError)
	default:
		fmt.Fprintf(w, "✓ %s (%s)\n", sr.Name, sr.Outcome)
	}
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(w io.Writer, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    CodeTestFailed,
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	if err := writeJSON(w, response); err != nil {
		return err
	}

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(w io.Writer, result TestResult) error {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		// Test failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
