package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/umbra/internal/trace"
)

// AssertionError is returned when an expectation fails.
// It includes the moves of the run to help debug the failure.
type AssertionError struct {
	Type     string        // Expectation type for categorization
	Expected string        // Human-readable expected outcome
	Actual   string        // Human-readable actual outcome
	Trace    []trace.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nMoves:\n")
		for _, event := range e.Trace {
			if event.Type == trace.TypeMove {
				fmt.Fprintf(&buf, "  [%d] %s\n", event.Step, event.Label)
			}
		}
	}

	return buf.String()
}

func assertScore(result *Result, want int64) error {
	if result.Score == want {
		return nil
	}
	return &AssertionError{
		Type:     "score",
		Expected: fmt.Sprintf("%d", want),
		Actual:   fmt.Sprintf("%d", result.Score),
		Trace:    result.Trace,
	}
}

// assertShadow compares a shadow variable in printed form. A null expected
// value matches an unassigned variable.
func assertShadow(result *Result, mdl model, e ShadowExpect) error {
	entity, v, err := variableOf(mdl, e.Entity, e.Variable)
	if err != nil {
		return fmt.Errorf("shadow %s.%s: %w", e.Entity, e.Variable, err)
	}
	want, got := formatValue(e.Value), formatValue(v.Get(entity))
	if want == got {
		return nil
	}
	return &AssertionError{
		Type:     "shadow",
		Expected: fmt.Sprintf("%s(%s) = %s", v, e.Entity, want),
		Actual:   fmt.Sprintf("%s(%s) = %s", v, e.Entity, got),
		Trace:    result.Trace,
	}
}

// assertFired checks the firings of one listener across the whole trace.
func assertFired(result *Result, e FiredExpect) error {
	fired := result.Fired(e.Listener)
	entities := make([]string, len(fired))
	for i, f := range fired {
		entities[i] = f.Entity
	}

	if e.Count != nil && len(fired) != *e.Count {
		return &AssertionError{
			Type:     "fired",
			Expected: fmt.Sprintf("%d firings of %s", *e.Count, e.Listener),
			Actual:   fmt.Sprintf("%d firings %v", len(fired), entities),
			Trace:    result.Trace,
		}
	}
	if e.Entities != nil && !slices.Equal(entities, e.Entities) {
		return &AssertionError{
			Type:     "fired",
			Expected: fmt.Sprintf("%s fired for %v", e.Listener, e.Entities),
			Actual:   fmt.Sprintf("%s fired for %v", e.Listener, entities),
			Trace:    result.Trace,
		}
	}
	return nil
}

func assertCorruption(result *Result, want []string) error {
	got := make([]string, len(result.Violations))
	for i, v := range result.Violations {
		got[i] = v.Key()
	}
	if slices.Equal(got, want) {
		return nil
	}
	if len(want) == 0 {
		want = []string{"none"}
	}
	return &AssertionError{
		Type:     "corruption",
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

// evaluateExpectations evaluates every expectation against the result.
// Returns a slice of error messages for failed expectations.
// A run that already failed is only checked for its trace expectations.
func evaluateExpectations(result *Result, expect Expect, mdl model) []string {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	for _, f := range expect.Fired {
		add(assertFired(result, f))
	}
	if !result.Pass {
		return errs
	}

	if expect.Score != nil {
		add(assertScore(result, *expect.Score))
	}
	for _, s := range expect.Shadows {
		add(assertShadow(result, mdl, s))
	}
	add(assertCorruption(result, expect.Corruption))

	return errs
}
