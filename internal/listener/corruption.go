package listener

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/umbra/internal/variable"
)

// violationDisplayLimit caps the violations listed per shadow variable.
const violationDisplayLimit = 3

// Violation is a shadow variable whose value changed when every listener was
// forced to recompute without any genuine change.
type Violation struct {
	Entity      any
	Variable    *variable.Descriptor
	Listener    string
	Corrupted   any
	Uncorrupted any
}

func (v Violation) String() string {
	return fmt.Sprintf("    The entity (%v)'s shadow variable (%s)'s corrupted value (%v) changed to uncorrupted value (%v)"+
		" after all variable listeners were triggered without changes to the genuine variables.\n"+
		"      Maybe the listener (%s) for that shadow variable (%s) forgot to update it when one of its sources changed.\n",
		v.Entity, v.Variable, v.Corrupted, v.Uncorrupted, v.Listener, v.Variable)
}

type shadowSnapshot struct {
	entity any
	v      *variable.Descriptor
	value  any
}

// DetectShadowVariableCorruption snapshots every shadow value, forces all
// listeners to fire and returns the values that changed, grouped by shadow
// variable in global order. The working solution is left with the
// recomputed values.
func (s *Support) DetectShadowVariableCorruption() []Violation {
	desc := s.sd.SolutionDescriptor()
	solution := s.sd.WorkingSolution()

	var snapshot []shadowSnapshot
	desc.VisitAllEntities(solution, func(entity any) {
		for _, v := range desc.MustFindEntityDescriptor(entity).ShadowVariables() {
			snapshot = append(snapshot, shadowSnapshot{entity: entity, v: v, value: v.Get(entity)})
		}
	})

	s.ForceTriggerAllVariableListeners()

	var violations []Violation
	for _, snap := range snapshot {
		now := snap.v.Get(snap.entity)
		if sameValue(snap.value, now) {
			continue
		}
		violations = append(violations, Violation{
			Entity:      snap.entity,
			Variable:    snap.v,
			Listener:    s.listenerName(snap.v),
			Corrupted:   snap.value,
			Uncorrupted: now,
		})
	}
	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Variable.GlobalShadowOrder() < violations[j].Variable.GlobalShadowOrder()
	})

	if len(violations) > 0 {
		s.logger.Warn("shadow variable corruption detected", "violations", len(violations))
	}
	return violations
}

// CreateShadowVariablesViolationMessage runs the corruption detector and
// formats at most three violations per shadow variable. It returns "" when
// every shadow variable is consistent.
func (s *Support) CreateShadowVariablesViolationMessage() string {
	return FormatViolations(s.DetectShadowVariableCorruption())
}

// FormatViolations renders violations as produced by
// DetectShadowVariableCorruption.
func FormatViolations(violations []Violation) string {
	if len(violations) == 0 {
		return ""
	}
	var b strings.Builder
	for start := 0; start < len(violations); {
		end := start
		for end < len(violations) && violations[end].Variable == violations[start].Variable {
			end++
		}
		group := violations[start:end]
		for _, v := range group[:min(len(group), violationDisplayLimit)] {
			b.WriteString(v.String())
		}
		if len(group) > violationDisplayLimit {
			fmt.Fprintf(&b, "  ... %d more\n", len(group)-violationDisplayLimit)
		}
		start = end
	}
	return b.String()
}

func (s *Support) listenerName(v *variable.Descriptor) string {
	if nf, ok := s.byShadow[v]; ok {
		return fmt.Sprintf("%T", nf.Listener())
	}
	return "unknown"
}

// sameValue compares shadow values. Comparable values of one type use ==,
// anything else falls back to reflect.DeepEqual.
func sameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
