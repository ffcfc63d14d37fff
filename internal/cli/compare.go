package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/umbra/internal/store"
)

// CompareOptions holds flags for the compare command.
type CompareOptions struct {
	*RootOptions
	Database string
}

// CompareResult is the outcome of comparing two stored traces.
type CompareResult struct {
	Left       string `json:"left"`
	Right      string `json:"right"`
	Identical  bool   `json:"identical"`
	Position   int    `json:"position,omitempty"`
	Divergence string `json:"divergence,omitempty"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare <left-run-id> <right-run-id>",
		Short: "Check that two runs propagated identically",
		Long: `Compare the stored traces of two runs event by event.

Two runs compare identical when every move fired the same listeners for
the same notifications in the same order. Clock values are ignored.

Exit codes:
  0 - Traces are identical
  1 - Traces diverge
  2 - Command error (database not found, etc.)

Examples:
  umbra compare --db ./umbra.db <left-run-id> <right-run-id>`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runCompare(opts *CompareOptions, left, right string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	for _, id := range []string{left, right} {
		if _, err := st.ReadRun(ctx, id); err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
	}

	div, identical, err := st.CompareRuns(ctx, left, right)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compare runs", err)
	}

	result := CompareResult{Left: left, Right: right, Identical: identical}
	if !identical {
		result.Position = div.Position
		result.Divergence = div.String()
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := writeJSON(w, CLIResponse{Status: jsonStatus(identical), Data: result}); err != nil {
			return err
		}
	} else if identical {
		fmt.Fprintf(w, "✓ %s and %s propagated identically\n", left, right)
	} else {
		fmt.Fprintf(w, "✗ %s\n", result.Divergence)
	}

	if !identical {
		return NewExitError(ExitFailure, "traces diverge")
	}
	return nil
}
