// Package move holds the moves that change planning variables. Every move
// brackets each write, so that listeners hear about it, and returns the move
// that undoes it.
package move

import (
	"fmt"
	"strings"

	"github.com/roach88/umbra/internal/shadow"
	"github.com/roach88/umbra/internal/variable"
)

// Move is a change to the working solution.
type Move interface {
	// Apply performs the bracketed change without triggering listeners and
	// returns the move that undoes it.
	Apply(sd variable.ScoreDirector) Move
	String() string
}

// Director is the score director surface Do needs.
type Director interface {
	variable.ScoreDirector
	MoveStarted(label string)
	MoveCompleted(label string) error
}

// Do applies m, triggers the variable listeners once and reports the move
// as completed. The returned undo move is valid even when err is not nil.
func Do(d Director, m Move) (undo Move, err error) {
	label := m.String()
	d.MoveStarted(label)
	undo = m.Apply(d)
	d.TriggerVariableListeners()
	return undo, d.MoveCompleted(label)
}

// =============================================================================
// Basic variables
// =============================================================================

// Change assigns To to Variable on Entity.
type Change struct {
	Variable *variable.Descriptor
	Entity   any
	To       any
}

func (m Change) Apply(sd variable.ScoreDirector) Move {
	from := m.Variable.Get(m.Entity)
	sd.BeforeVariableChanged(m.Variable, m.Entity)
	m.Variable.Set(m.Entity, m.To)
	sd.AfterVariableChanged(m.Variable, m.Entity)
	return Change{Variable: m.Variable, Entity: m.Entity, To: from}
}

func (m Change) String() string {
	return fmt.Sprintf("%v {%s -> %v}", m.Entity, m.Variable.Name(), m.To)
}

// Swap exchanges the values of Variables between Left and Right.
type Swap struct {
	Variables   []*variable.Descriptor
	Left, Right any
}

func (m Swap) Apply(sd variable.ScoreDirector) Move {
	for _, v := range m.Variables {
		left, right := v.Get(m.Left), v.Get(m.Right)
		sd.BeforeVariableChanged(v, m.Left)
		v.Set(m.Left, right)
		sd.AfterVariableChanged(v, m.Left)
		sd.BeforeVariableChanged(v, m.Right)
		v.Set(m.Right, left)
		sd.AfterVariableChanged(v, m.Right)
	}
	return m
}

func (m Swap) String() string {
	names := make([]string, len(m.Variables))
	for i, v := range m.Variables {
		names[i] = v.Name()
	}
	return fmt.Sprintf("%v <-> %v {%s}", m.Left, m.Right, strings.Join(names, ", "))
}

// =============================================================================
// Chained variables
// =============================================================================

// ChainedChange moves Entity so that it follows To, closing the gap it
// leaves and re-pointing To's former trailing entity at Entity.
type ChainedChange struct {
	Variable *variable.Descriptor
	Entity   any
	To       any
}

func (m ChainedChange) Apply(sd variable.ScoreDirector) Move {
	inverse := variable.DemandAs[shadow.SingletonInverse](sd.SupplyManager(), shadow.SingletonInverseDemand{Source: m.Variable})
	from := m.Variable.Get(m.Entity)
	if m.To == m.Entity || m.To == from {
		return m
	}
	oldTrailing := inverse.InverseSingleton(m.Entity)
	newTrailing := inverse.InverseSingleton(m.To)

	if oldTrailing != nil {
		change(sd, m.Variable, oldTrailing, from)
	}
	change(sd, m.Variable, m.Entity, m.To)
	if newTrailing != nil {
		change(sd, m.Variable, newTrailing, m.Entity)
	}
	return ChainedChange{Variable: m.Variable, Entity: m.Entity, To: from}
}

func (m ChainedChange) String() string {
	return fmt.Sprintf("%v {%s -> %v}", m.Entity, m.Variable.Name(), m.To)
}

func change(sd variable.ScoreDirector, v *variable.Descriptor, entity, value any) {
	sd.BeforeVariableChanged(v, entity)
	v.Set(entity, value)
	sd.AfterVariableChanged(v, entity)
}

// =============================================================================
// Composite
// =============================================================================

// Composite applies its moves in order. Listeners are triggered between
// moves, so each move sees supplies that reflect the moves before it.
type Composite struct {
	Moves []Move
}

func (m Composite) Apply(sd variable.ScoreDirector) Move {
	undos := make([]Move, len(m.Moves))
	for i, sub := range m.Moves {
		if i > 0 {
			sd.TriggerVariableListeners()
		}
		undos[len(m.Moves)-1-i] = sub.Apply(sd)
	}
	return Composite{Moves: undos}
}

func (m Composite) String() string {
	parts := make([]string, len(m.Moves))
	for i, sub := range m.Moves {
		parts[i] = sub.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
