package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/umbra/internal/config"
)

// Scenario defines a propagation scenario: a demo model, moves applied to
// its sample solution and the expected outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Model selects the demo model: "routing" or "chained".
	Model string `yaml:"model"`

	// EnvironmentMode overrides the configured mode when set.
	EnvironmentMode config.EnvironmentMode `yaml:"environment_mode,omitempty"`

	// Setup moves run before tracing starts. They establish the initial
	// state and are not part of the trace.
	Setup []MoveStep `yaml:"setup,omitempty"`

	// Moves are the traced moves, one step each.
	Moves []MoveStep `yaml:"moves"`

	// Expect validates the final state and the trace.
	Expect Expect `yaml:"expect"`
}

// MoveStep describes one move. Which fields are used depends on Move.
type MoveStep struct {
	// Move is the move kind, see the Move* constants.
	Move string `yaml:"move"`

	Entity  string `yaml:"entity,omitempty"`
	Element string `yaml:"element,omitempty"`
	Index   int    `yaml:"index,omitempty"`

	Source      string `yaml:"source,omitempty"`
	SourceIndex int    `yaml:"source_index,omitempty"`
	Dest        string `yaml:"dest,omitempty"`
	DestIndex   int    `yaml:"dest_index,omitempty"`

	Left       string `yaml:"left,omitempty"`
	LeftIndex  int    `yaml:"left_index,omitempty"`
	Right      string `yaml:"right,omitempty"`
	RightIndex int    `yaml:"right_index,omitempty"`

	// To is the new value of a chained change, or the exclusive end of a
	// reverse.
	To string `yaml:"to,omitempty"`
	// From is the start of a reverse.
	From int `yaml:"from,omitempty"`
	End  int `yaml:"end,omitempty"`

	// Moves are the sub-moves of a composite.
	Moves []MoveStep `yaml:"moves,omitempty"`

	// Variable and Value are used by corrupt, which overwrites an integer
	// shadow variable without telling any listener.
	Variable string `yaml:"variable,omitempty"`
	Value    int    `yaml:"value,omitempty"`
}

// Move kinds.
const (
	MoveListAssign    = "list_assign"
	MoveListUnassign  = "list_unassign"
	MoveListChange    = "list_change"
	MoveListSwap      = "list_swap"
	MoveListReverse   = "list_reverse"
	MoveChange        = "change"
	MoveSwap          = "swap"
	MoveChainedChange = "chained_change"
	MoveComposite     = "composite"
	// MoveUndo applies the undo move of the previous move.
	MoveUndo = "undo"
	// MoveCorrupt is not a move: it writes a shadow variable behind the
	// listeners' back so the corruption detector has something to find.
	MoveCorrupt = "corrupt"
)

// Model names.
const (
	ModelRouting = "routing"
	ModelChained = "chained"
)

// Expect is the expected outcome of a scenario.
type Expect struct {
	// Score is the expected final score.
	Score *int64 `yaml:"score,omitempty"`

	// Shadows are expected shadow variable values after the last move.
	Shadows []ShadowExpect `yaml:"shadows,omitempty"`

	// Fired lists expected listener firings over all traced moves.
	Fired []FiredExpect `yaml:"fired,omitempty"`

	// Corruption lists the stale shadow variables the corruption detector
	// must report, as "Entity.variable(entity)" in detection order. Empty
	// means no corruption is expected.
	Corruption []string `yaml:"corruption,omitempty"`
}

// ShadowExpect is the expected value of one shadow variable. Entities and
// values are compared in their printed form; null means unassigned.
type ShadowExpect struct {
	Entity   string `yaml:"entity"`
	Variable string `yaml:"variable"`
	Value    any    `yaml:"value"`
}

// FiredExpect checks the firings of one listener. Entities, if set, is the
// exact order of the entities it fired for. Count, if set, is the number of
// firings.
type FiredExpect struct {
	Listener string   `yaml:"listener"`
	Entities []string `yaml:"entities,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml and *.yml scenario in dir, sorted by
// file name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	scenarios := make([]*Scenario, 0, len(names))
	for _, name := range names {
		s, err := LoadScenario(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Model != ModelRouting && s.Model != ModelChained {
		return fmt.Errorf("model must be %q or %q, got %q", ModelRouting, ModelChained, s.Model)
	}

	if s.EnvironmentMode != "" {
		cfg := config.Default()
		cfg.EnvironmentMode = s.EnvironmentMode
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	if len(s.Moves) == 0 {
		return fmt.Errorf("moves list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if step.Move == MoveUndo || step.Move == MoveCorrupt {
			return fmt.Errorf("setup[%d]: %s is only allowed in moves", i, step.Move)
		}
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
	}
	for i, step := range s.Moves {
		if step.Move == MoveUndo && i == 0 && len(s.Setup) == 0 {
			return fmt.Errorf("moves[0]: undo needs a previous move")
		}
		if err := validateStep(fmt.Sprintf("moves[%d]", i), step); err != nil {
			return err
		}
	}

	for i, e := range s.Expect.Shadows {
		if e.Entity == "" || e.Variable == "" {
			return fmt.Errorf("expect.shadows[%d]: entity and variable are required", i)
		}
	}
	for i, e := range s.Expect.Fired {
		if e.Listener == "" {
			return fmt.Errorf("expect.fired[%d]: listener is required", i)
		}
		if e.Entities == nil && e.Count == nil {
			return fmt.Errorf("expect.fired[%d]: entities or count is required", i)
		}
	}

	return nil
}

func validateStep(where string, step MoveStep) error {
	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("%s: %s is required for %s", where, field, step.Move)
		}
		return nil
	}

	switch step.Move {
	case MoveListAssign:
		if err := require("element", step.Element); err != nil {
			return err
		}
		return require("entity", step.Entity)
	case MoveListUnassign:
		return require("entity", step.Entity)
	case MoveListChange:
		if err := require("source", step.Source); err != nil {
			return err
		}
		return require("dest", step.Dest)
	case MoveListSwap, MoveSwap:
		if err := require("left", step.Left); err != nil {
			return err
		}
		return require("right", step.Right)
	case MoveListReverse:
		if err := require("entity", step.Entity); err != nil {
			return err
		}
		if step.End <= step.From {
			return fmt.Errorf("%s: end must be greater than from", where)
		}
	case MoveChange, MoveChainedChange:
		if err := require("entity", step.Entity); err != nil {
			return err
		}
		return require("to", step.To)
	case MoveComposite:
		if len(step.Moves) == 0 {
			return fmt.Errorf("%s: composite needs moves", where)
		}
		for i, sub := range step.Moves {
			if sub.Move == MoveUndo || sub.Move == MoveComposite || sub.Move == MoveCorrupt {
				return fmt.Errorf("%s.moves[%d]: %s cannot be nested in a composite", where, i, sub.Move)
			}
			if err := validateStep(fmt.Sprintf("%s.moves[%d]", where, i), sub); err != nil {
				return err
			}
		}
	case MoveCorrupt:
		if err := require("entity", step.Entity); err != nil {
			return err
		}
		return require("variable", step.Variable)
	case MoveUndo:
	case "":
		return fmt.Errorf("%s: move is required", where)
	default:
		return fmt.Errorf("%s: unknown move %q", where, step.Move)
	}
	return nil
}
