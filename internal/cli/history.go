package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/remapcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Scenario string
	Batch    string
	List     bool
}

// HistoryResult holds the runs returned by the history command.
type HistoryResult struct {
	Runs      []store.Run `json:"runs,omitempty"`
	Scenarios []string    `json:"scenarios,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List the verification runs recorded with --db, oldest first.

Runs are ordered by their sequence number; runs from one test invocation
share a batch token.

Examples:
  remapcheck history --db runs.db
  remapcheck history --db runs.db --scenario core2_to_mom_one_deg
  remapcheck history --db runs.db --batch 0192f7a4-...
  remapcheck history --db runs.db --list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().String("db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only runs of this scenario")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "only runs of this batch token")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list recorded scenario names")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	cfg, err := opts.settings(cmd)
	if err != nil {
		return err
	}
	db := cfg.GetString("db")
	if db == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if opts.Scenario != "" && opts.Batch != "" {
		return NewExitError(ExitCommandError, "--scenario and --batch are mutually exclusive")
	}
	// Opening would create an empty database.
	if _, err := os.Stat(db); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", db))
	}

	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var result HistoryResult
	switch {
	case opts.List:
		result.Scenarios, err = st.ListScenarios(ctx)
	case opts.Scenario != "":
		result.Runs, err = st.ReadRunsByScenario(ctx, opts.Scenario)
	case opts.Batch != "":
		result.Runs, err = st.ReadBatch(ctx, opts.Batch)
	default:
		result.Runs, err = st.ReadRuns(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read runs", err)
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	outputHistoryText(cmd.OutOrStdout(), result, opts.List)
	return nil
}

func outputHistoryText(w io.Writer, result HistoryResult, list bool) {
	if list {
		if len(result.Scenarios) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return
		}
		for _, name := range result.Scenarios {
			fmt.Fprintln(w, name)
		}
		return
	}

	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range result.Runs {
		fmt.Fprintf(w, "[%d] %s %s\n", r.Seq, r.Scenario, r.Outcome)
		if r.RelativeError != "" {
			fmt.Fprintf(w, "     Relative error: %s (tolerance %s)\n", r.RelativeError, r.Tolerance)
		}
		if r.ErrorKind != "" {
			fmt.Fprintf(w, "     Error: %s\n", r.ErrorMessage)
		}
		fmt.Fprintf(w, "     Weights: %s\n", r.WeightsPath)
		fmt.Fprintf(w, "     ID: %s  Batch: %s\n", truncateID(r.ID), r.BatchToken)
	}
}
