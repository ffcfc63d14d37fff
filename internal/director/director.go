// Package director implements the score director: the owner of a working
// solution through which every planning variable change is bracketed, shadow
// variables are propagated and the score is calculated.
package director

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/umbra/internal/config"
	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/metrics"
	"github.com/roach88/umbra/internal/trace"
	"github.com/roach88/umbra/internal/variable"
)

// ScoreFunc calculates the score of a solution. It may read shadow
// variables, which are up to date whenever it is called.
type ScoreFunc func(solution any) int64

// Director is the single-writer score director.
//
// Director is not safe for concurrent use. It owns exactly one
// listener.Support and every listener built for it.
type Director struct {
	desc     *variable.SolutionDescriptor
	score    ScoreFunc
	support  *listener.Support
	solution any

	mode    config.EnvironmentMode
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *trace.Recorder

	calculations int
	moves        int
	closed       bool
}

var _ variable.ScoreDirector = (*Director)(nil)

// Option configures a Director.
type Option func(*Director)

// WithEnvironmentMode sets the environment mode. Default: config.Reproducible.
func WithEnvironmentMode(m config.EnvironmentMode) Option {
	return func(d *Director) {
		if m != "" {
			d.mode = m
		}
	}
}

// WithMetrics reports propagation activity to c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Director) { d.metrics = c }
}

// WithTrace records every listener firing to r.
func WithTrace(r *trace.Recorder) Option {
	return func(d *Director) { d.tracer = r }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(d *Director) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a director for desc, linking desc first if needed, and builds
// one listener per declared shadow variable.
func New(desc *variable.SolutionDescriptor, score ScoreFunc, opts ...Option) (*Director, error) {
	if !desc.IsLinked() {
		if err := desc.Link(); err != nil {
			return nil, err
		}
	}
	d := &Director{
		desc:   desc,
		score:  score,
		mode:   config.Reproducible,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	supportOpts := []listener.SupportOption{listener.WithSupportLogger(d.logger)}
	if d.metrics != nil {
		supportOpts = append(supportOpts, listener.WithObserver(d.metrics))
	}
	if d.tracer != nil {
		supportOpts = append(supportOpts, listener.WithObserver(d.tracer))
	}
	d.support = listener.NewSupport(d, supportOpts...)
	if err := d.support.LinkVariableListeners(); err != nil {
		return nil, fmt.Errorf("link variable listeners: %w", err)
	}
	return d, nil
}

// SolutionDescriptor implements variable.ScoreDirector.
func (d *Director) SolutionDescriptor() *variable.SolutionDescriptor { return d.desc }

// WorkingSolution implements variable.ScoreDirector.
func (d *Director) WorkingSolution() any { return d.solution }

// SupplyManager implements variable.ScoreDirector.
func (d *Director) SupplyManager() variable.SupplyManager { return d.support }

// Support exposes the listener support, for inspection.
func (d *Director) Support() *listener.Support { return d.support }

// EnvironmentMode returns the configured mode.
func (d *Director) EnvironmentMode() config.EnvironmentMode { return d.mode }

// SetWorkingSolution installs solution, resets every listener and supply
// against it and recomputes all shadow variables.
func (d *Director) SetWorkingSolution(solution any) {
	d.solution = solution
	d.support.ResetWorkingSolution()
	d.support.ForceTriggerAllVariableListeners()
	d.logger.Debug("working solution set", "listeners", d.support.Registry().Len())
}

func (d *Director) entityDescriptor(entity any) *variable.EntityDescriptor {
	e, ok := d.desc.FindEntityDescriptor(entity)
	if !ok {
		panic(&listener.StateError{
			Code:    listener.ErrCodeUnknownEntity,
			Message: fmt.Sprintf("the entity (%v) of type %T is not part of the solution descriptor", entity, entity),
		})
	}
	return e
}

// =============================================================================
// Brackets
// =============================================================================

func (d *Director) BeforeEntityAdded(entity any) {
	d.support.BeforeEntityAdded(d.entityDescriptor(entity), entity)
}

func (d *Director) AfterEntityAdded(any) {}

func (d *Director) BeforeEntityRemoved(entity any) {
	d.support.BeforeEntityRemoved(d.entityDescriptor(entity), entity)
}

func (d *Director) AfterEntityRemoved(any) {}

func (d *Director) BeforeVariableChanged(v *variable.Descriptor, entity any) {
	d.support.BeforeVariableChanged(v, entity)
}

func (d *Director) AfterVariableChanged(*variable.Descriptor, any) {}

func (d *Director) BeforeElementAdded(v *variable.Descriptor, entity any, index int) {
	d.support.BeforeElementAdded(v, entity, index)
}

func (d *Director) AfterElementAdded(v *variable.Descriptor, entity any, index int) {
	d.support.AfterElementAdded(v, entity, index)
}

func (d *Director) BeforeElementRemoved(v *variable.Descriptor, entity any, index int) {
	d.support.BeforeElementRemoved(v, entity, index)
}

func (d *Director) AfterElementRemoved(v *variable.Descriptor, entity any, index int, element any) {
	d.support.AfterElementRemoved(v, entity, index, element)
}

func (d *Director) BeforeElementMoved(v *variable.Descriptor, source any, sourceIndex int, dest any, destIndex int) {
	d.support.BeforeElementMoved(v, source, sourceIndex, dest, destIndex)
}

func (d *Director) AfterElementMoved(v *variable.Descriptor, source any, sourceIndex int, dest any, destIndex int) {
	d.support.AfterElementMoved(v, source, sourceIndex, dest, destIndex)
}

func (d *Director) BeforeListVariableChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	d.support.BeforeListVariableChanged(v, entity, fromIndex, toIndex)
}

func (d *Director) AfterListVariableChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	d.support.AfterListVariableChanged(v, entity, fromIndex, toIndex)
}

func (d *Director) BeforeSubListChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	d.support.BeforeSubListChanged(v, entity, fromIndex, toIndex)
}

func (d *Director) AfterSubListChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	d.support.AfterSubListChanged(v, entity, fromIndex, toIndex)
}

// TriggerVariableListeners drains every notification queue.
func (d *Director) TriggerVariableListeners() {
	d.support.TriggerVariableListenersInNotificationQueues()
}

// =============================================================================
// Moves and score
// =============================================================================

// MoveStarted marks the start of a move in the trace.
func (d *Director) MoveStarted(label string) {
	if d.tracer != nil {
		d.tracer.MoveStarted(label)
	}
}

// MoveCompleted is called by moves after their trigger. In full_assert mode
// it fails when the queues are not empty or a shadow variable is stale.
func (d *Director) MoveCompleted(label string) error {
	d.moves++
	if d.metrics != nil {
		d.metrics.MoveCompleted()
	}
	if !d.mode.IsAsserted() {
		return nil
	}
	if err := d.support.AssertNotificationQueuesAreEmpty(); err != nil {
		return fmt.Errorf("after move %q: %w", label, err)
	}
	if err := d.AssertShadowVariablesAreNotStale(); err != nil {
		return fmt.Errorf("after move %q: %w", label, err)
	}
	return nil
}

// CalculateScore returns the score of the working solution. It fails if a
// before-hook was called without a trigger since, because the shadow
// variables the score reads would be stale.
func (d *Director) CalculateScore() (int64, error) {
	if err := d.support.AssertNotificationQueuesAreEmpty(); err != nil {
		return 0, err
	}
	d.calculations++
	return d.score(d.solution), nil
}

// CalculationCount returns how many scores were calculated.
func (d *Director) CalculationCount() int { return d.calculations }

// MoveCount returns how many moves completed.
func (d *Director) MoveCount() int { return d.moves }

// CorruptionError reports stale shadow variables.
type CorruptionError struct {
	Violations []listener.Violation
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("shadow variable corruption (%d stale values):\n%s",
		len(e.Violations), listener.FormatViolations(e.Violations))
}

// IsCorruptionError reports whether err carries stale shadow variables.
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// AssertShadowVariablesAreNotStale recomputes every shadow variable and
// fails if any of them changed. The recomputed values stay in place.
func (d *Director) AssertShadowVariablesAreNotStale() error {
	violations := d.support.DetectShadowVariableCorruption()
	if len(violations) == 0 {
		return nil
	}
	if d.metrics != nil {
		d.metrics.CorruptionDetected(violations)
	}
	return &CorruptionError{Violations: violations}
}

// ShadowVariableAnalysis describes every stale shadow variable, or returns
// "" when there are none.
func (d *Director) ShadowVariableAnalysis() string {
	violations := d.support.DetectShadowVariableCorruption()
	if d.metrics != nil && len(violations) > 0 {
		d.metrics.CorruptionDetected(violations)
	}
	return listener.FormatViolations(violations)
}

// Close closes every listener and supply. Calling Close twice is a no-op.
func (d *Director) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.support.Close()
	d.logger.Debug("score director closed", "moves", d.moves, "calculations", d.calculations)
}
