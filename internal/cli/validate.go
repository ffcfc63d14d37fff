package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/umbra/internal/config"
	"github.com/roach88/umbra/internal/demo"
	"github.com/roach88/umbra/internal/harness"
	"github.com/roach88/umbra/internal/variable"
)

// ModelTopology is the linked shadow order of one demo model.
type ModelTopology struct {
	Name    string   `json:"name"`
	Shadows []string `json:"shadows"`
	Error   string   `json:"error,omitempty"`
}

// ScenarioCheck is the validation outcome of one scenario file.
type ScenarioCheck struct {
	Path  string `json:"path"`
	Name  string `json:"name,omitempty"`
	Error string `json:"error,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Config    *config.SolverConfig `json:"config"`
	Models    []ModelTopology      `json:"models"`
	Scenarios []ScenarioCheck      `json:"scenarios"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenario files or dirs...]",
		Short: "Validate config, model topology and scenarios",
		Long: `Link the demo models and print their global shadow order, then
parse every scenario file given. Directories are searched for .yaml and
.yml files.

The config given with --config is validated while it is loaded.

Examples:
  umbra validate
  umbra validate ./scenarios
  umbra validate --config solver.cue ./scenarios/relocate.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	result := ValidationResult{
		Valid:     true,
		Config:    opts.solverConfig(),
		Models:    modelTopologies(),
		Scenarios: []ScenarioCheck{},
	}
	for _, m := range result.Models {
		if m.Error != "" {
			result.Valid = false
		}
	}

	for _, p := range paths {
		files, err := scenarioFilesAt(p, "")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), p)
		for _, f := range files {
			check := ScenarioCheck{Path: f}
			s, err := harness.LoadScenario(f)
			if err != nil {
				check.Error = err.Error()
				result.Valid = false
			} else {
				check.Name = s.Name
			}
			result.Scenarios = append(result.Scenarios, check)
		}
	}

	if opts.Format == "json" {
		if err := writeJSON(formatter.Writer, CLIResponse{Status: jsonStatus(result.Valid), Data: result}); err != nil {
			return err
		}
	} else {
		writeValidateText(formatter.Writer, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// modelTopologies links every demo model.
func modelTopologies() []ModelTopology {
	link := func(name string, build func() (*variable.SolutionDescriptor, error)) ModelTopology {
		d, err := build()
		if err != nil {
			return ModelTopology{Name: name, Shadows: []string{}, Error: err.Error()}
		}
		return ModelTopology{Name: name, Shadows: d.GlobalShadowOrder()}
	}
	return []ModelTopology{
		link(harness.ModelRouting, func() (*variable.SolutionDescriptor, error) {
			m, err := demo.NewRoutingModel()
			if err != nil {
				return nil, err
			}
			return m.Descriptor, nil
		}),
		link(harness.ModelChained, func() (*variable.SolutionDescriptor, error) {
			m, err := demo.NewChainedModel()
			if err != nil {
				return nil, err
			}
			return m.Descriptor, nil
		}),
	}
}

func writeValidateText(w io.Writer, result ValidationResult) {
	cfg := result.Config
	fmt.Fprintf(w, "config: environment_mode=%s metrics=%t trace_db=%q\n", cfg.EnvironmentMode, cfg.Metrics, cfg.TraceDB)
	for _, m := range result.Models {
		if m.Error != "" {
			fmt.Fprintf(w, "✗ model %s: %s\n", m.Name, m.Error)
			continue
		}
		fmt.Fprintf(w, "model %s:\n", m.Name)
		for _, line := range m.Shadows {
			fmt.Fprintf(w, "  %s\n", line)
		}
	}
	for _, s := range result.Scenarios {
		if s.Error != "" {
			fmt.Fprintf(w, "✗ %s\n  %s\n", s.Path, s.Error)
			continue
		}
		fmt.Fprintf(w, "✓ %s (%s)\n", s.Path, s.Name)
	}
	if result.Valid {
		fmt.Fprintln(w, "✓ Validation passed")
	}
}

// scenarioFilesAt returns path itself when it is a file, or the scenario
// files below it when it is a directory.
func scenarioFilesAt(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	return findScenarioFiles(path, filter)
}
