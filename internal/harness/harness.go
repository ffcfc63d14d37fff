package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/umbra/internal/config"
	"github.com/roach88/umbra/internal/director"
	"github.com/roach88/umbra/internal/metrics"
	"github.com/roach88/umbra/internal/move"
	"github.com/roach88/umbra/internal/store"
	"github.com/roach88/umbra/internal/testutil"
	"github.com/roach88/umbra/internal/trace"
)

// Harness is the scenario execution engine.
// It applies moves through a score director with a trace recorder attached.
type Harness struct {
	director *director.Director
	model    model
	recorder *trace.Recorder
	logger   *slog.Logger

	lastUndo move.Move
	moves    int
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	runIDs  trace.RunIDGenerator
	clock   trace.Sequencer
	metrics *metrics.Collector
	mode    config.EnvironmentMode
	store   *store.Store
	logger  *slog.Logger
}

// WithRunIDGenerator sets the run id generator.
// Default: a fixed id equal to the scenario name.
func WithRunIDGenerator(g trace.RunIDGenerator) Option {
	return func(c *runConfig) { c.runIDs = g }
}

// WithClock sets the trace clock. Default: testutil.DeterministicClock.
func WithClock(s trace.Sequencer) Option {
	return func(c *runConfig) { c.clock = s }
}

// WithMetrics reports propagation activity of the run to m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *runConfig) { c.metrics = m }
}

// WithEnvironmentMode sets the mode used when the scenario does not name one.
func WithEnvironmentMode(m config.EnvironmentMode) Option {
	return func(c *runConfig) { c.mode = m }
}

// WithStore persists the run, its trace and its violations to s.
func WithStore(s *store.Store) Option {
	return func(c *runConfig) { c.store = s }
}

// WithLogger sets the logger. Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the demo model and its sample solution
//  2. Create a score director with a trace recorder
//  3. Apply setup moves, then clear the trace
//  4. Apply the traced moves
//  5. Calculate the score and run the corruption detector
//  6. Evaluate expectations and persist the run if a store is set
//
// A returned error means the scenario could not be executed. Failed
// expectations and propagation failures are reported in the Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{
		mode:   config.Reproducible,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.runIDs == nil {
		cfg.runIDs = testutil.NewFixedRunIDGenerator(scenario.Name)
	}
	if cfg.clock == nil {
		cfg.clock = testutil.NewDeterministicClock()
	}
	mode := cfg.mode
	if scenario.EnvironmentMode != "" {
		mode = scenario.EnvironmentMode
	}

	mdl, err := newModel(scenario.Model)
	if err != nil {
		return nil, err
	}
	rec := trace.NewRecorder(cfg.runIDs, cfg.clock)
	dopts := []director.Option{
		director.WithEnvironmentMode(mode),
		director.WithTrace(rec),
		director.WithLogger(cfg.logger),
	}
	if cfg.metrics != nil {
		dopts = append(dopts, director.WithMetrics(cfg.metrics))
	}
	d, err := director.New(mdl.descriptor(), mdl.scoreFunc(), dopts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create score director: %w", err)
	}
	defer d.Close()
	d.SetWorkingSolution(mdl.solution())

	h := &Harness{director: d, model: mdl, recorder: rec, logger: cfg.logger}
	result := NewResult()
	result.RunID = rec.RunID()

	if err := h.executeSetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to execute setup: %w", err)
	}
	rec.Reset()

	if err := h.executeMoves(scenario.Moves, result); err != nil {
		return nil, fmt.Errorf("failed to execute moves: %w", err)
	}
	result.Trace = rec.Events()
	result.Moves = h.moves

	if result.Pass {
		h.finish(result)
	}

	for _, errMsg := range evaluateExpectations(result, scenario.Expect, mdl) {
		result.AddError(errMsg)
	}

	if cfg.store != nil {
		if err := persist(ctx, cfg.store, scenario, mode, result); err != nil {
			return nil, err
		}
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"run_id", result.RunID,
		"moves", result.Moves,
		"pass", result.Pass,
	)
	return result, nil
}

// executeSetup applies setup moves. Any failure is fatal: the scenario's
// starting state would be wrong.
func (h *Harness) executeSetup(setup []MoveStep) error {
	for i, step := range setup {
		m, err := h.buildStep(step)
		if err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		if err := h.do(m); err != nil {
			return fmt.Errorf("setup step %d: %w", i, err)
		}
		h.logger.Debug("setup step completed", "step", i, "move", m.String())
	}
	return nil
}

// executeMoves applies the traced moves. A step that cannot be built is
// returned as an error. A move that fails while propagating stops the run
// and is reported in result. Corruption found in full_assert mode is
// recorded and the run continues, since the detector leaves the recomputed
// values in place.
func (h *Harness) executeMoves(moves []MoveStep, result *Result) error {
	for i, step := range moves {
		if step.Move == MoveCorrupt {
			if err := h.corrupt(step); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
			continue
		}

		var m move.Move
		if step.Move == MoveUndo {
			if h.lastUndo == nil {
				return fmt.Errorf("step %d: undo needs a previous move", i)
			}
			m = h.lastUndo
		} else {
			var err error
			if m, err = h.buildStep(step); err != nil {
				return fmt.Errorf("step %d: %w", i, err)
			}
		}

		h.moves++
		err := h.do(m)
		var ce *director.CorruptionError
		switch {
		case errors.As(err, &ce):
			for _, v := range ce.Violations {
				result.Violations = append(result.Violations, Violation{Step: h.moves, Violation: v})
			}
		case err != nil:
			result.AddError(fmt.Sprintf("step %d (%s): %v", i, m, err))
			return nil
		}
		h.logger.Debug("move completed", "step", h.moves, "move", m.String())
	}
	return nil
}

// do applies m and keeps its undo move. Panics raised while propagating,
// such as a corrupted supply, are returned as errors.
func (h *Harness) do(m move.Move) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("propagation failed: %w", e)
				return
			}
			err = fmt.Errorf("propagation failed: %v", r)
		}
	}()
	undo, err := move.Do(h.director, m)
	h.lastUndo = undo
	return err
}

func (h *Harness) buildStep(step MoveStep) (move.Move, error) {
	if step.Move != MoveComposite {
		return h.model.build(step)
	}
	moves := make([]move.Move, len(step.Moves))
	for i, sub := range step.Moves {
		m, err := h.model.build(sub)
		if err != nil {
			return nil, fmt.Errorf("composite move %d: %w", i, err)
		}
		moves[i] = m
	}
	return move.Composite{Moves: moves}, nil
}

// corrupt overwrites an integer shadow variable without notifying anyone.
func (h *Harness) corrupt(step MoveStep) error {
	entity, v, err := variableOf(h.model, step.Entity, step.Variable)
	if err != nil {
		return err
	}
	if !v.IsShadow() {
		return fmt.Errorf("%s is not a shadow variable", v)
	}
	if _, ok := v.Get(entity).(int); !ok {
		return fmt.Errorf("%s is not an integer shadow variable", v)
	}
	v.Set(entity, step.Value)
	h.logger.Debug("shadow variable corrupted", "variable", v.String(), "entity", step.Entity, "value", step.Value)
	return nil
}

// finish calculates the score and runs the corruption detector once more.
func (h *Harness) finish(result *Result) {
	score, err := h.director.CalculateScore()
	if err != nil {
		result.AddError(fmt.Sprintf("calculate score: %v", err))
		return
	}
	result.Score = score

	var ce *director.CorruptionError
	if err := h.director.AssertShadowVariablesAreNotStale(); errors.As(err, &ce) {
		for _, v := range ce.Violations {
			result.Violations = append(result.Violations, Violation{Step: h.moves, Violation: v})
		}
	}
}

func persist(ctx context.Context, st *store.Store, scenario *Scenario, mode config.EnvironmentMode, result *Result) error {
	run := store.Run{
		ID:              result.RunID,
		Scenario:        scenario.Name,
		Model:           scenario.Model,
		EnvironmentMode: string(mode),
		Score:           result.Score,
		Moves:           result.Moves,
	}
	if err := st.WriteRun(ctx, run); err != nil {
		return err
	}
	if err := st.WriteTraceEvents(ctx, run.ID, result.Trace); err != nil {
		return err
	}
	for _, v := range result.Violations {
		if err := st.WriteViolation(ctx, run.ID, v.Step, v.Violation); err != nil {
			return err
		}
	}
	return nil
}

// RunAll runs every scenario with the same options. It stops at the first
// scenario that cannot be executed.
func RunAll(ctx context.Context, scenarios []*Scenario, opts ...Option) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		r, err := Run(ctx, s, opts...)
		if err != nil {
			return results, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		results = append(results, r)
	}
	return results, nil
}
