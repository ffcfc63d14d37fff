package harness

import (
	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/trace"
)

// Violation is a corruption detector finding with the move step it was found
// after.
type Violation struct {
	Step int
	listener.Violation
}

// Key identifies the stale shadow variable as "Entity.variable(entity)".
func (v Violation) Key() string {
	return v.Variable.String() + "(" + formatValue(v.Entity) + ")"
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expectation matched.
	Pass bool `json:"pass"`

	// RunID identifies the run in the trace and the store.
	RunID string `json:"run_id"`

	// Score is the score after the last move.
	Score int64 `json:"score"`

	// Moves is the number of traced moves applied.
	Moves int `json:"moves"`

	// Trace contains every propagation event of the traced moves, in order.
	// Setup moves and the final corruption check are not part of it.
	Trace []trace.Event `json:"trace"`

	// Violations are the stale shadow variables found after the moves.
	Violations []Violation `json:"-"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Fired returns the firings of one listener, in order.
func (r *Result) Fired(listenerName string) []trace.Event {
	var out []trace.Event
	for _, e := range r.Trace {
		if e.Type == trace.TypeFired && e.Listener == listenerName {
			out = append(out, e)
		}
	}
	return out
}
