package shadow

import (
	"github.com/roach88/umbra/internal/variable"
)

// ChainedInverseListener maintains a "next" shadow variable: when an entity
// points at a value of the target's entity type, the value's target is set
// back to that entity. Values of other types, such as anchors, are skipped.
type ChainedInverseListener struct {
	variable.NopEntityHooks
	source *variable.Descriptor
	target *variable.Descriptor
}

func NewChainedInverseListener(source, target *variable.Descriptor) *ChainedInverseListener {
	return &ChainedInverseListener{source: source, target: target}
}

// ChainedInverseListenerFactory returns a factory for ShadowConfig.Listener.
func ChainedInverseListenerFactory(source *variable.Descriptor) variable.ListenerFactory {
	return func(shadow *variable.Descriptor) variable.Listener {
		return NewChainedInverseListener(source, shadow)
	}
}

func (l *ChainedInverseListener) AfterEntityAdded(sd variable.ScoreDirector, entity any) {
	l.insert(sd, entity)
}

func (l *ChainedInverseListener) BeforeEntityRemoved(sd variable.ScoreDirector, entity any) {
	l.retract(sd, entity)
}

func (l *ChainedInverseListener) BeforeVariableChanged(sd variable.ScoreDirector, entity any) {
	l.retract(sd, entity)
}

func (l *ChainedInverseListener) AfterVariableChanged(sd variable.ScoreDirector, entity any) {
	l.insert(sd, entity)
}

func (l *ChainedInverseListener) insert(sd variable.ScoreDirector, entity any) {
	value := normalize(l.source.Get(entity))
	if value == nil || !l.target.Entity().Matches(value) {
		return
	}
	if existing := normalize(l.target.Get(value)); existing != nil && existing != entity {
		panic(&TrailingEntityError{
			Variable: l.source.String(),
			Value:    value,
			Existing: existing,
			Entity:   entity,
		})
	}
	assign(sd, l.target, value, entity)
}

// retract clears the value's back pointer if it still points at entity.
func (l *ChainedInverseListener) retract(sd variable.ScoreDirector, entity any) {
	value := normalize(l.source.Get(entity))
	if value == nil || !l.target.Entity().Matches(value) {
		return
	}
	if normalize(l.target.Get(value)) == entity {
		assign(sd, l.target, value, nil)
	}
}

// AnchorListener maintains an "anchor" shadow variable: the value at the head
// of the chain an entity belongs to. It walks trailing entities through the
// chain's "next" shadow variable, so that variable must be among its sources.
type AnchorListener struct {
	variable.NopEntityHooks
	previous *variable.Descriptor
	next     *variable.Descriptor
	target   *variable.Descriptor
}

func NewAnchorListener(previous, next, target *variable.Descriptor) *AnchorListener {
	return &AnchorListener{previous: previous, next: next, target: target}
}

// AnchorListenerFactory returns a factory for ShadowConfig.Listener. The
// shadow must be sourced on both previous and next.
func AnchorListenerFactory(previous, next *variable.Descriptor) variable.ListenerFactory {
	return func(shadow *variable.Descriptor) variable.Listener {
		return NewAnchorListener(previous, next, shadow)
	}
}

func (l *AnchorListener) AfterEntityAdded(sd variable.ScoreDirector, entity any) {
	l.insert(sd, entity)
}

func (l *AnchorListener) BeforeVariableChanged(variable.ScoreDirector, any) {}

func (l *AnchorListener) AfterVariableChanged(sd variable.ScoreDirector, entity any) {
	l.insert(sd, entity)
}

func (l *AnchorListener) insert(sd variable.ScoreDirector, entity any) {
	anchor := l.anchorOf(entity)
	for current := entity; current != nil; current = normalize(l.next.Get(current)) {
		if !assign(sd, l.target, current, anchor) {
			return
		}
	}
}

func (l *AnchorListener) anchorOf(entity any) any {
	previous := normalize(l.previous.Get(entity))
	switch {
	case previous == nil:
		return nil
	case l.previous.Entity().Matches(previous):
		return normalize(l.target.Get(previous))
	default:
		return previous
	}
}
