package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/remapcheck/internal/conserve"
	"github.com/roach88/remapcheck/internal/harness"
	"github.com/roach88/remapcheck/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Name         string
	Layout       string
	WeightColumn int
	SrcMask      string
	DestMask     string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <weights> <src> <dest>",
		Short: "Check that a weight file conserves a field",
		Long: `Apply the weight matrix to the source field and compare the global sum of
the result with the global sum of the destination field.

Exit codes:
  0 - Conserved (relative error below tolerance)
  1 - Not conserved
  2 - Unreadable input, shape mismatch or degenerate destination field

Examples:
  remapcheck verify rmp_cort_to_momt.nc src.nc dest.nc
  remapcheck verify weights.nc src.nc dest.nc --tolerance 1e-12 --index-origin one
  remapcheck verify weights.nc src.nc dest.nc --db runs.db --format json`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args, cmd)
		},
	}

	cmd.Flags().Float64("tolerance", conserve.DefaultTolerance, "relative error tolerance")
	cmd.Flags().String("index-origin", "auto", "index base of the weight file (auto|zero|one)")
	cmd.Flags().String("src-var", conserve.DefaultVariable, "source field variable")
	cmd.Flags().String("dest-var", conserve.DefaultVariable, "destination field variable")
	cmd.Flags().String("db", "", "record the run in this SQLite database")
	cmd.Flags().StringVar(&opts.Name, "name", "", "name to record the run under (default: weight file name)")
	cmd.Flags().StringVar(&opts.Layout, "layout", "", "weight file layout (scrip|esmf|generic); detected when empty")
	cmd.Flags().IntVar(&opts.WeightColumn, "weight-column", 0, "column of a 2-D remap_matrix")
	cmd.Flags().StringVar(&opts.SrcMask, "src-mask", "", "source mask variable (non-zero is valid)")
	cmd.Flags().StringVar(&opts.DestMask, "dest-mask", "", "destination mask variable (non-zero is valid)")

	return cmd
}

func runVerify(opts *VerifyOptions, args []string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}

	name := opts.Name
	if name == "" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	scenario := &harness.Scenario{
		Name:         name,
		Description:  "command line verification",
		Weights:      args[0],
		Src:          args[1],
		Dest:         args[2],
		SrcVar:       cfg.GetString("src-var"),
		DestVar:      cfg.GetString("dest-var"),
		SrcMask:      opts.SrcMask,
		DestMask:     opts.DestMask,
		Layout:       opts.Layout,
		WeightColumn: opts.WeightColumn,
		IndexOrigin:  cfg.GetString("index-origin"),
		Tolerance:    cfg.GetFloat64("tolerance"),
		Expect:       harness.OutcomeConserved,
	}
	if scenario.Tolerance <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("tolerance must be positive, got %g", scenario.Tolerance))
	}
	if _, err := scenario.VerifyOptions(); err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}

	runOpts := harness.Options{Logger: opts.logger()}
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
	result, err := harness.Run(ctx, scenario, runOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "verification failed", err)
	}

	if opts.Format == "json" {
		return outputVerifyJSON(cmd.OutOrStdout(), result)
	}
	return outputVerifyText(cmd.OutOrStdout(), result, opts.Verbose)
}

// verifyExit maps a result to the command's exit error.
func verifyExit(r *harness.Result) error {
	switch r.Outcome {
	case harness.OutcomeConserved:
		return nil
	case harness.OutcomeViolated:
		return NewExitError(ExitFailure, fmt.Sprintf("not conserved: relative error %g, tolerance %g",
			r.Report.RelativeError, r.Tolerance))
	default:
		return NewExitError(ExitCommandError, r.Error)
	}
}

func outputVerifyJSON(w io.Writer, r *harness.Result) error {
	resp := CLIResponse{Status: "ok", Data: r}
	switch r.Outcome {
	case harness.OutcomeConserved:
	case harness.OutcomeViolated:
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    CodeNotConserved,
			Message: fmt.Sprintf("relative error %g exceeds tolerance %g", r.Report.RelativeError, r.Tolerance),
		}
	default:
		resp.Status = "error"
		resp.Error = &CLIError{Code: codeForKind(r.ErrorKind), Message: r.Error}
	}
	if err := writeJSON(w, resp); err != nil {
		return err
	}
	return verifyExit(r)
}

func outputVerifyText(w io.Writer, r *harness.Result, verbose bool) error {
	rep := r.Report
	if rep == nil {
		fmt.Fprintf(w, "✗ %s\n", r.Outcome)
		fmt.Fprintf(w, "  %s\n", r.Error)
		return verifyExit(r)
	}

	mark := "✓"
	if r.Outcome != harness.OutcomeConserved {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s: relative error %g (tolerance %g)\n", mark, r.Outcome, rep.RelativeError, r.Tolerance)

	st := rep.Matrix
	origin := st.Origin
	if st.OriginInferred {
		origin += " (inferred)"
	}
	fmt.Fprintf(w, "  Layout: %s, origin %s\n", st.Layout, origin)
	fmt.Fprintf(w, "  Cells:  %d destination (%d valid), %d source (%d valid)\n",
		st.DestSize, rep.DestValid, st.SrcSize, rep.SrcValid)
	fmt.Fprintf(w, "  Sums:   destination %g, reconstructed %g, source %g\n",
		rep.DestSum, rep.ReconstructedSum, rep.SrcSum)
	if verbose {
		fmt.Fprintf(w, "  Matrix: %d weights, %d empty rows, row sums in [%g, %g]\n",
			st.NNZ, st.EmptyRows, st.MinRowSum, st.MaxRowSum)
	}
	if r.RunID != "" {
		fmt.Fprintf(w, "  Run:    %s\n", truncateID(r.RunID))
	}
	return verifyExit(r)
}
