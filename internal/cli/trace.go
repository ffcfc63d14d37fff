package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/umbra/internal/store"
	"github.com/roach88/umbra/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Listener string // optional - only firings of this listener
}

// RunSummary is one stored run.
type RunSummary struct {
	ID              string `json:"id"`
	Scenario        string `json:"scenario"`
	Model           string `json:"model"`
	EnvironmentMode string `json:"environment_mode"`
	Score           int64  `json:"score"`
	Moves           int    `json:"moves"`
}

// ViolationOutput is one stored corruption detector finding.
type ViolationOutput struct {
	Step        int    `json:"step"`
	Variable    string `json:"variable"`
	Entity      string `json:"entity"`
	Listener    string `json:"listener"`
	Corrupted   string `json:"corrupted"`
	Uncorrupted string `json:"uncorrupted"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int `json:"total_events"`
	Moves       int `json:"moves"`
	Fired       int `json:"fired"`
	Triggers    int `json:"triggers"`
}

// TraceResult holds the complete trace output of one run.
type TraceResult struct {
	Run        RunSummary        `json:"run"`
	Timeline   []trace.Event     `json:"timeline"`
	Violations []ViolationOutput `json:"violations"`
	Stats      TraceStats        `json:"stats"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Show stored runs and their traces",
		Long: `Without a run id, list every run stored in the database.

With a run id, print the run's propagation trace: each move, the listeners
it fired in global shadow order, and the trigger that drained them,
followed by any corruption the detector found.

Examples:
  umbra trace --db ./umbra.db
  umbra trace --db ./umbra.db 01890a5d-ac96-774b-bcce-b302099a8057
  umbra trace --db ./umbra.db <run-id> --listener Visit.arrival
  umbra trace --db ./umbra.db <run-id> --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runListRuns(opts, cmd)
			}
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Listener, "listener", "", "only show firings of this listener (e.g. Visit.index)")

	return cmd
}

func runListRuns(opts *TraceOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(commandContext(cmd))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = summarizeRun(r)
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(w, CLIResponse{Status: "ok", Data: summaries})
	}
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return nil
	}
	for _, r := range summaries {
		fmt.Fprintf(w, "%s  %-24s %-8s %-16s score=%d moves=%d\n",
			r.ID, r.Scenario, r.Model, r.EnvironmentMode, r.Score, r.Moves)
	}
	return nil
}

func runTrace(opts *TraceOptions, runID string, cmd *cobra.Command) error {
	ctx := commandContext(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	var events []trace.Event
	if opts.Listener != "" {
		events, err = st.ReadFired(ctx, runID, opts.Listener)
	} else {
		events, err = st.ReadTrace(ctx, runID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}

	records, err := st.ReadViolations(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read violations", err)
	}

	result := TraceResult{
		Run:        summarizeRun(run),
		Timeline:   events,
		Violations: make([]ViolationOutput, len(records)),
		Stats:      traceStats(events),
	}
	for i, v := range records {
		result.Violations[i] = ViolationOutput{
			Step:        v.Step,
			Variable:    v.Variable,
			Entity:      v.Entity,
			Listener:    v.Listener,
			Corrupted:   v.Corrupted,
			Uncorrupted: v.Uncorrupted,
		}
	}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	writeTraceText(cmd.OutOrStdout(), result)
	return nil
}

func summarizeRun(r store.Run) RunSummary {
	return RunSummary{
		ID:              r.ID,
		Scenario:        r.Scenario,
		Model:           r.Model,
		EnvironmentMode: r.EnvironmentMode,
		Score:           r.Score,
		Moves:           r.Moves,
	}
}

func traceStats(events []trace.Event) TraceStats {
	stats := TraceStats{TotalEvents: len(events)}
	for _, e := range events {
		switch e.Type {
		case trace.TypeMove:
			stats.Moves++
		case trace.TypeFired:
			stats.Fired++
		case trace.TypeTrigger:
			stats.Triggers++
		}
	}
	return stats
}

func writeTraceText(w io.Writer, result TraceResult) {
	r := result.Run
	fmt.Fprintf(w, "Run: %s (%s, %s model, %s)\n", r.ID, r.Scenario, r.Model, r.EnvironmentMode)
	fmt.Fprintf(w, "Score: %d after %d move(s)\n\n", r.Score, r.Moves)

	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "No events recorded.")
	}
	for _, e := range result.Timeline {
		switch e.Type {
		case trace.TypeMove:
			fmt.Fprintf(w, "[%d] move %s\n", e.Step, e.Label)
		case trace.TypeFired:
			fmt.Fprintf(w, "    %3d %d:%s %s\n", e.Seq, e.GlobalOrder, e.Listener, e.Notification)
		case trace.TypeTrigger:
			fmt.Fprintf(w, "    %3d trigger fired=%d\n", e.Seq, e.Fired)
		case trace.TypeDemand:
			fmt.Fprintf(w, "    %3d demand %s cached=%t\n", e.Seq, e.Demand, e.Cached)
		}
	}

	if len(result.Violations) > 0 {
		fmt.Fprintln(w, "\nCorruption:")
		for _, v := range result.Violations {
			fmt.Fprintf(w, "  step %d: %s(%s) corrupted=%s uncorrupted=%s (%s)\n",
				v.Step, v.Variable, v.Entity, v.Corrupted, v.Uncorrupted, v.Listener)
		}
	}

	s := result.Stats
	fmt.Fprintf(w, "\n%d event(s): %d move(s), %d firing(s), %d trigger(s)\n", s.TotalEvents, s.Moves, s.Fired, s.Triggers)
}
