package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/umbra/internal/config"
	"github.com/roach88/umbra/internal/harness"
	"github.com/roach88/umbra/internal/metrics"
	"github.com/roach88/umbra/internal/store"
	"github.com/roach88/umbra/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Mode     string
	Metrics  bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to trace.UUIDv7Generator.
	RunIDs trace.RunIDGenerator
}

// RunOutput is the result of the run command.
type RunOutput struct {
	RunID      string             `json:"run_id"`
	Scenario   string             `json:"scenario"`
	Pass       bool               `json:"pass"`
	Score      int64              `json:"score"`
	Moves      int                `json:"moves"`
	Fired      int                `json:"fired"`
	Violations []string           `json:"violations"`
	Errors     []string           `json:"errors,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario",
		Long: `Apply the moves of a scenario to its demo model and check the
expected outcome.

The run gets a UUIDv7 id. With --db (or trace_db in the config) the run,
its trace and any corruption found are written to SQLite, where the trace
and compare commands can read them.

Examples:
  umbra run ./scenarios/relocate.yaml
  umbra run ./scenarios/relocate.yaml --db ./umbra.db
  umbra run ./scenarios/relocate.yaml --mode full_assert --metrics`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: trace_db from config)")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "environment mode (default: environment_mode from config)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "collect and print propagation metrics")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	cfg := opts.solverConfig()
	logger := opts.newLogger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	mode := cfg.EnvironmentMode
	if opts.Mode != "" {
		mode = config.EnvironmentMode(opts.Mode)
		if err := (&config.SolverConfig{EnvironmentMode: mode}).Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid --mode", err)
		}
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = trace.UUIDv7Generator{}
	}
	hopts := []harness.Option{
		harness.WithRunIDGenerator(runIDs),
		harness.WithClock(trace.NewClock()),
		harness.WithEnvironmentMode(mode),
		harness.WithLogger(logger),
	}

	var reg *prometheus.Registry
	if opts.Metrics || cfg.Metrics {
		reg = prometheus.NewRegistry()
		hopts = append(hopts, harness.WithMetrics(metrics.New(reg)))
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.TraceDB
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		hopts = append(hopts, harness.WithStore(st))
		logger.Debug("persisting run", "db", dbPath)
	}

	result, err := harness.Run(commandContext(cmd), scenario, hopts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunOutput{
		RunID:      result.RunID,
		Scenario:   scenario.Name,
		Pass:       result.Pass,
		Score:      result.Score,
		Moves:      result.Moves,
		Fired:      countFired(result.Trace),
		Violations: make([]string, len(result.Violations)),
		Errors:     result.Errors,
	}
	for i, v := range result.Violations {
		out.Violations[i] = fmt.Sprintf("step %d: %s corrupted=%v uncorrupted=%v", v.Step, v.Key(), v.Corrupted, v.Uncorrupted)
	}
	if reg != nil {
		if out.Metrics, err = counterTotals(reg); err != nil {
			logger.Warn("failed to gather metrics", "error", err)
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(cmd.OutOrStdout(), CLIResponse{Status: jsonStatus(out.Pass), Data: out}); err != nil {
			return err
		}
	} else {
		writeRunText(cmd.OutOrStdout(), out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	logger.Debug("run finished", "run_id", out.RunID)
	return nil
}

func writeRunText(w io.Writer, out RunOutput) {
	mark := "✓"
	if !out.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (run %s)\n", mark, out.Scenario, out.RunID)
	fmt.Fprintf(w, "  moves: %d  fired: %d  score: %d\n", out.Moves, out.Fired, out.Score)
	for _, v := range out.Violations {
		fmt.Fprintf(w, "  corruption %s\n", v)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if len(out.Metrics) > 0 {
		names := make([]string, 0, len(out.Metrics))
		for name := range out.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintln(w, "  metrics:")
		for _, name := range names {
			fmt.Fprintf(w, "    %s %g\n", name, out.Metrics[name])
		}
	}
}

func countFired(events []trace.Event) int {
	n := 0
	for _, e := range events {
		if e.Type == trace.TypeFired {
			n++
		}
	}
	return n
}

// counterTotals sums every counter family in reg across its label values.
func counterTotals(reg *prometheus.Registry) (map[string]float64, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	totals := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if c := m.GetCounter(); c != nil {
				totals[f.GetName()] += c.GetValue()
			}
		}
	}
	return totals, nil
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
