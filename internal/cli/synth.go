package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/roach88/remapcheck/internal/harness"
	"github.com/roach88/remapcheck/internal/synth"
	"github.com/roach88/remapcheck/internal/weights"
)

// SynthOptions holds flags for the synth command.
type SynthOptions struct {
	*RootOptions
	Src      string
	Dest     string
	Layout   string
	Pattern  string
	Value    float64
	Variable string
	Scenario string
}

// SynthResult describes the files written by the synth command.
type SynthResult struct {
	synth.Paths
	Scenario string `json:"scenario,omitempty"`
	NNZ      int    `json:"nnz"`
}

// NewSynthCommand creates the synth command.
func NewSynthCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SynthOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "synth <out-dir>",
		Short: "Write a synthetic conservative remap",
		Long: `Generate a self-test fixture: block-averaging overlap weights between two
regular grids on the unit square, a source field and the matching
destination field. Verifying the result must report a relative error near
machine precision.

With --scenario, a scenario file referencing the generated files is written
next to them, ready for "remapcheck test".

Examples:
  remapcheck synth ./fixture --src 8x6 --dest 5x4
  remapcheck synth ./fixture --src 360x180 --dest 144x96 --pattern wave --layout esmf
  remapcheck synth ./suite --src 36x18 --dest 10x9 --scenario synthetic_coarse`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSynth(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Src, "src", "", "source grid as NXxNY (required)")
	_ = cmd.MarkFlagRequired("src")
	cmd.Flags().StringVar(&opts.Dest, "dest", "", "destination grid as NXxNY (required)")
	_ = cmd.MarkFlagRequired("dest")
	cmd.Flags().StringVar(&opts.Layout, "layout", "scrip", "weight file layout (scrip|esmf|generic)")
	cmd.Flags().StringVar(&opts.Pattern, "pattern", string(synth.PatternConstant), "source field (constant|wave)")
	cmd.Flags().Float64Var(&opts.Value, "value", 1, "field amplitude")
	cmd.Flags().StringVar(&opts.Variable, "var", "Array", "field variable name")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "also write <out-dir>/<name>.yaml")

	return cmd
}

func runSynth(opts *SynthOptions, dir string, cmd *cobra.Command) error {
	src, err := synth.ParseGrid(opts.Src)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --src", err)
	}
	dest, err := synth.ParseGrid(opts.Dest)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --dest", err)
	}
	layout, err := weights.LayoutByName(opts.Layout)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --layout", err)
	}
	pattern := synth.Pattern(opts.Pattern)
	if pattern != synth.PatternConstant && pattern != synth.PatternWave {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid --pattern %q: must be constant or wave", opts.Pattern))
	}

	paths, err := synth.Write(dir, synth.Config{
		Src:      src,
		Dest:     dest,
		Pattern:  pattern,
		Value:    opts.Value,
		Layout:   layout,
		Variable: opts.Variable,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write fixture", err)
	}
	opts.logger().Debug("fixture written",
		zap.String("dir", dir), zap.String("src", src.String()), zap.String("dest", dest.String()))

	result := SynthResult{Paths: paths, NNZ: synth.OverlapWeights(src, dest).Len()}
	if opts.Scenario != "" {
		result.Scenario, err = writeSynthScenario(dir, opts, paths, src, dest, result.NNZ)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to write scenario", err)
		}
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: result})
	}
	fmt.Fprintf(w, "✓ %s onto %s, %d weights (%s)\n", src, dest, result.NNZ, layout.Name)
	fmt.Fprintf(w, "  Weights: %s\n", paths.Weights)
	fmt.Fprintf(w, "  Source:  %s\n", paths.Src)
	fmt.Fprintf(w, "  Dest:    %s\n", paths.Dest)
	if result.Scenario != "" {
		fmt.Fprintf(w, "  Scenario: %s\n", result.Scenario)
	}
	return nil
}

// writeSynthScenario writes a scenario expecting conservation of the
// generated fixture, with paths relative to dir.
func writeSynthScenario(dir string, opts *SynthOptions, paths synth.Paths, src, dest synth.Grid, nnz int) (string, error) {
	empty := 0
	s := harness.Scenario{
		Name:        opts.Scenario,
		Description: fmt.Sprintf("synthetic %s field, %s onto %s", opts.Pattern, src, dest),
		Resolution:  "custom",
		Weights:     filepath.Base(paths.Weights),
		Src:         filepath.Base(paths.Src),
		Dest:        filepath.Base(paths.Dest),
		Layout:      opts.Layout,
		Expect:      harness.OutcomeConserved,
		Assertions: []harness.Assertion{
			{Type: harness.AssertLayout, Equals: opts.Layout},
			{Type: harness.AssertNNZ, Count: &nnz},
			{Type: harness.AssertEmptyRows, Count: &empty},
		},
	}
	if opts.Variable != "Array" {
		s.SrcVar = opts.Variable
		s.DestVar = opts.Variable
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, opts.Scenario+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
