package move

import (
	"fmt"

	"github.com/roach88/umbra/internal/variable"
)

// ListAssign inserts an unassigned Element into Entity's list at Index.
type ListAssign struct {
	Variable *variable.Descriptor
	Element  any
	Entity   any
	Index    int
}

func (m ListAssign) Apply(sd variable.ScoreDirector) Move {
	sd.BeforeElementAdded(m.Variable, m.Entity, m.Index)
	m.Variable.AddElement(m.Entity, m.Index, m.Element)
	sd.AfterElementAdded(m.Variable, m.Entity, m.Index)
	return ListUnassign{Variable: m.Variable, Entity: m.Entity, Index: m.Index}
}

func (m ListAssign) String() string {
	return fmt.Sprintf("assign %v -> %v[%d]", m.Element, m.Entity, m.Index)
}

// ListUnassign removes the element at Index from Entity's list.
type ListUnassign struct {
	Variable *variable.Descriptor
	Entity   any
	Index    int
}

func (m ListUnassign) Apply(sd variable.ScoreDirector) Move {
	sd.BeforeElementRemoved(m.Variable, m.Entity, m.Index)
	element := m.Variable.RemoveElement(m.Entity, m.Index)
	sd.AfterElementRemoved(m.Variable, m.Entity, m.Index, element)
	return ListAssign{Variable: m.Variable, Element: element, Entity: m.Entity, Index: m.Index}
}

func (m ListUnassign) String() string {
	return fmt.Sprintf("unassign %v[%d]", m.Entity, m.Index)
}

// ListChange moves the element at Source[SourceIndex] to Dest[DestIndex].
// DestIndex is the element's index after the move.
type ListChange struct {
	Variable    *variable.Descriptor
	Source      any
	SourceIndex int
	Dest        any
	DestIndex   int
}

func (m ListChange) Apply(sd variable.ScoreDirector) Move {
	sd.BeforeElementMoved(m.Variable, m.Source, m.SourceIndex, m.Dest, m.DestIndex)
	element := m.Variable.RemoveElement(m.Source, m.SourceIndex)
	m.Variable.AddElement(m.Dest, m.DestIndex, element)
	sd.AfterElementMoved(m.Variable, m.Source, m.SourceIndex, m.Dest, m.DestIndex)
	return ListChange{
		Variable:    m.Variable,
		Source:      m.Dest,
		SourceIndex: m.DestIndex,
		Dest:        m.Source,
		DestIndex:   m.SourceIndex,
	}
}

func (m ListChange) String() string {
	return fmt.Sprintf("move %v[%d] -> %v[%d]", m.Source, m.SourceIndex, m.Dest, m.DestIndex)
}

// ListSwap exchanges two elements, possibly of different lists. It is
// announced as list variable changes of the affected ranges.
type ListSwap struct {
	Variable   *variable.Descriptor
	Left       any
	LeftIndex  int
	Right      any
	RightIndex int
}

func (m ListSwap) Apply(sd variable.ScoreDirector) Move {
	v := m.Variable
	if m.Left == m.Right {
		from, to := min(m.LeftIndex, m.RightIndex), max(m.LeftIndex, m.RightIndex)+1
		sd.BeforeListVariableChanged(v, m.Left, from, to)
		m.swap()
		sd.AfterListVariableChanged(v, m.Left, from, to)
		return m
	}
	sd.BeforeListVariableChanged(v, m.Left, m.LeftIndex, m.LeftIndex+1)
	sd.BeforeListVariableChanged(v, m.Right, m.RightIndex, m.RightIndex+1)
	m.swap()
	sd.AfterListVariableChanged(v, m.Left, m.LeftIndex, m.LeftIndex+1)
	sd.AfterListVariableChanged(v, m.Right, m.RightIndex, m.RightIndex+1)
	return m
}

func (m ListSwap) swap() {
	v := m.Variable
	left, right := v.Element(m.Left, m.LeftIndex), v.Element(m.Right, m.RightIndex)
	replace(v, m.Left, m.LeftIndex, right)
	replace(v, m.Right, m.RightIndex, left)
}

// replace overwrites the element at index without changing the list size.
func replace(v *variable.Descriptor, entity any, index int, element any) {
	v.RemoveElement(entity, index)
	v.AddElement(entity, index, element)
}

func (m ListSwap) String() string {
	return fmt.Sprintf("swap %v[%d] <-> %v[%d]", m.Left, m.LeftIndex, m.Right, m.RightIndex)
}

// ListReverse reverses Entity's list between From (inclusive) and To
// (exclusive), the 2-opt move. It is announced as a sub-list change.
type ListReverse struct {
	Variable *variable.Descriptor
	Entity   any
	From, To int
}

func (m ListReverse) Apply(sd variable.ScoreDirector) Move {
	v := m.Variable
	sd.BeforeSubListChanged(v, m.Entity, m.From, m.To)
	for i, j := m.From, m.To-1; i < j; i, j = i+1, j-1 {
		left, right := v.Element(m.Entity, i), v.Element(m.Entity, j)
		replace(v, m.Entity, i, right)
		replace(v, m.Entity, j, left)
	}
	sd.AfterSubListChanged(v, m.Entity, m.From, m.To)
	return m
}

func (m ListReverse) String() string {
	return fmt.Sprintf("reverse %v[%d:%d]", m.Entity, m.From, m.To)
}
