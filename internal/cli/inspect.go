package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/remapcheck/internal/dataset"
	"github.com/roach88/remapcheck/internal/weights"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Layout       string
	WeightColumn int
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <weights>",
		Short: "Show weight matrix statistics",
		Long: `Load a weight file and report its layout, index origin, grid sizes,
number of weights, empty destination rows and the range of row sums.

For a first-order conservative remap between fully overlapping grids every
row sums to 1.

Examples:
  remapcheck inspect rmp_cort_to_momt.nc
  remapcheck inspect weights.nc --layout esmf --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().String("index-origin", "auto", "index base of the weight file (auto|zero|one)")
	cmd.Flags().StringVar(&opts.Layout, "layout", "", "weight file layout (scrip|esmf|generic); detected when empty")
	cmd.Flags().IntVar(&opts.WeightColumn, "weight-column", 0, "column of a 2-D remap_matrix")

	return cmd
}

func runInspect(opts *InspectOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}

	origin, err := weights.ParseOrigin(cfg.GetString("index-origin"))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid options", err)
	}
	wopts := weights.Options{
		Origin:       origin,
		WeightColumn: opts.WeightColumn,
		Logger:       opts.logger(),
	}
	if opts.Layout != "" {
		l, err := weights.LayoutByName(opts.Layout)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid options", err)
		}
		wopts.Layout = &l
	}

	m, err := weights.LoadFile(dataset.OpenNetCDF, path, wopts)
	if err != nil {
		if opts.Format == "json" {
			code := CodeIO
			if weights.IsIndexError(err) {
				code = CodeShape
			}
			_ = writeJSON(cmd.OutOrStdout(), CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: code, Message: err.Error()},
			})
		}
		return WrapExitError(ExitCommandError, "failed to load weights", err)
	}

	stats := m.Stats()
	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: stats})
	}
	outputStatsText(cmd.OutOrStdout(), path, stats)
	return nil
}

func outputStatsText(w io.Writer, path string, st weights.Stats) {
	origin := st.Origin
	if st.OriginInferred {
		origin += " (inferred)"
	}
	fmt.Fprintf(w, "Weights: %s\n", path)
	fmt.Fprintf(w, "  Layout:      %s\n", st.Layout)
	fmt.Fprintf(w, "  Origin:      %s\n", origin)
	fmt.Fprintf(w, "  Destination: %d cells\n", st.DestSize)
	fmt.Fprintf(w, "  Source:      %d cells\n", st.SrcSize)
	fmt.Fprintf(w, "  Weights:     %d\n", st.NNZ)
	fmt.Fprintf(w, "  Empty rows:  %d\n", st.EmptyRows)
	fmt.Fprintf(w, "  Row sums:    [%g, %g]\n", st.MinRowSum, st.MaxRowSum)
}
