package shadow

import (
	"github.com/roach88/umbra/internal/variable"
)

// listShadow is the shared engine of the list shadow listeners. It writes
// target on elements of source, recomputing each position with compute.
//
// After a change in [from, to) it walks forward from from+offset and keeps
// going past to until it meets a position whose value is already correct,
// which covers the shift caused by inserts and removals.
type listShadow struct {
	source     *variable.Descriptor
	target     *variable.Descriptor
	unassigned any
	offset     int
	compute    func(entity any, index, size int) any
}

func (l *listShadow) update(sd variable.ScoreDirector, entity any, from, to int) {
	size := l.source.ListSize(entity)
	for i := max(from+l.offset, 0); i < size; i++ {
		element := l.source.Element(entity, i)
		changed := assign(sd, l.target, element, l.compute(entity, i, size))
		if !changed && i >= to {
			return
		}
	}
}

func (l *listShadow) retract(sd variable.ScoreDirector, element any) {
	assign(sd, l.target, element, l.unassigned)
}

func (l *listShadow) BeforeEntityAdded(variable.ScoreDirector, any) {}

func (l *listShadow) AfterEntityAdded(sd variable.ScoreDirector, entity any) {
	l.update(sd, entity, 0, l.source.ListSize(entity))
}

func (l *listShadow) BeforeEntityRemoved(variable.ScoreDirector, any) {}

func (l *listShadow) AfterEntityRemoved(sd variable.ScoreDirector, entity any) {
	for i, size := 0, l.source.ListSize(entity); i < size; i++ {
		l.retract(sd, l.source.Element(entity, i))
	}
}

func (l *listShadow) ResetWorkingSolution(variable.ScoreDirector) {}

func (l *listShadow) Close() {}

func (l *listShadow) BeforeElementAdded(variable.ScoreDirector, any, int) {}

func (l *listShadow) AfterElementAdded(sd variable.ScoreDirector, entity any, index int) {
	l.update(sd, entity, index, index+1)
}

func (l *listShadow) BeforeElementRemoved(variable.ScoreDirector, any, int) {}

func (l *listShadow) AfterElementRemoved(sd variable.ScoreDirector, entity any, index int, element any) {
	l.retract(sd, element)
	l.update(sd, entity, index, index)
}

func (l *listShadow) BeforeElementMoved(variable.ScoreDirector, any, int, any, int) {}

// AfterElementMoved recomputes both ends of the move. Within one list every
// position between the two indexes may have shifted, so the whole span is
// covered in one pass.
func (l *listShadow) AfterElementMoved(sd variable.ScoreDirector, src any, srcIndex int, dst any, dstIndex int) {
	if src == dst {
		l.update(sd, src, min(srcIndex, dstIndex), max(srcIndex, dstIndex)+1)
		return
	}
	l.update(sd, src, srcIndex, srcIndex+1)
	l.update(sd, dst, dstIndex, dstIndex+1)
}

// BeforeListVariableChanged unassigns the elements about to be rearranged.
// Elements that are still in a list afterwards are reassigned by the after
// side of whichever entity now holds them.
func (l *listShadow) BeforeListVariableChanged(sd variable.ScoreDirector, entity any, from, to int) {
	for i := max(from, 0); i < min(to, l.source.ListSize(entity)); i++ {
		l.retract(sd, l.source.Element(entity, i))
	}
}

func (l *listShadow) AfterListVariableChanged(sd variable.ScoreDirector, entity any, from, to int) {
	l.update(sd, entity, from, to)
}

// IndexListener maintains an int shadow variable holding each element's
// position in its list, or -1 when unassigned.
type IndexListener struct {
	listShadow
}

// NewIndexListener creates an index listener writing target.
func NewIndexListener(source, target *variable.Descriptor) *IndexListener {
	return &IndexListener{listShadow{
		source:     source,
		target:     target,
		unassigned: -1,
		compute:    func(_ any, index, _ int) any { return index },
	}}
}

// IndexOf implements IndexSupply.
func (l *IndexListener) IndexOf(element any) int {
	if i, ok := l.target.Get(element).(int); ok {
		return i
	}
	return -1
}

// InverseRelationListener maintains a shadow variable holding the entity whose
// list contains each element.
type InverseRelationListener struct {
	listShadow
}

// NewInverseRelationListener creates an inverse relation listener writing
// target.
func NewInverseRelationListener(source, target *variable.Descriptor) *InverseRelationListener {
	return &InverseRelationListener{listShadow{
		source:  source,
		target:  target,
		compute: func(entity any, _, _ int) any { return entity },
	}}
}

// InverseOf implements InverseSupply.
func (l *InverseRelationListener) InverseOf(element any) any {
	return normalize(l.target.Get(element))
}

// PreviousElementListener maintains a shadow variable holding each element's
// predecessor in its list.
type PreviousElementListener struct {
	listShadow
}

func NewPreviousElementListener(source, target *variable.Descriptor) *PreviousElementListener {
	l := &PreviousElementListener{}
	l.listShadow = listShadow{
		source: source,
		target: target,
		compute: func(entity any, index, _ int) any {
			if index == 0 {
				return nil
			}
			return source.Element(entity, index-1)
		},
	}
	return l
}

// NextElementListener maintains a shadow variable holding each element's
// successor in its list. A change at index i also changes the successor of
// the element at i-1, so updates start one position early.
type NextElementListener struct {
	listShadow
}

func NewNextElementListener(source, target *variable.Descriptor) *NextElementListener {
	l := &NextElementListener{}
	l.listShadow = listShadow{
		source: source,
		target: target,
		offset: -1,
		compute: func(entity any, index, size int) any {
			if index == size-1 {
				return nil
			}
			return source.Element(entity, index+1)
		},
	}
	return l
}

// IndexListenerFactory returns a factory for ShadowConfig.Listener.
func IndexListenerFactory(source *variable.Descriptor) variable.ListenerFactory {
	return func(shadow *variable.Descriptor) variable.Listener {
		return NewIndexListener(source, shadow)
	}
}

func InverseRelationListenerFactory(source *variable.Descriptor) variable.ListenerFactory {
	return func(shadow *variable.Descriptor) variable.Listener {
		return NewInverseRelationListener(source, shadow)
	}
}

func PreviousElementListenerFactory(source *variable.Descriptor) variable.ListenerFactory {
	return func(shadow *variable.Descriptor) variable.Listener {
		return NewPreviousElementListener(source, shadow)
	}
}

func NextElementListenerFactory(source *variable.Descriptor) variable.ListenerFactory {
	return func(shadow *variable.Descriptor) variable.Listener {
		return NewNextElementListener(source, shadow)
	}
}
