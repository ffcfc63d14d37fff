package shadow

import (
	"fmt"

	"github.com/roach88/umbra/internal/variable"
)

// TrailingEntityError is raised when two entities point at the same value of
// a variable that must form chains.
type TrailingEntityError struct {
	Variable string
	Value    any
	Existing any
	Entity   any
}

func (e *TrailingEntityError) Error() string {
	return fmt.Sprintf("the supply for %s is corrupted: value (%v) has multiple trailing entities (%v) and (%v)",
		e.Variable, e.Value, e.Existing, e.Entity)
}

// SingletonInverse resolves a value to the single entity pointing at it.
type SingletonInverse interface {
	InverseSingleton(value any) any
}

// SingletonInverseDemand requests a SingletonInverseSupply for a basic or
// chained variable.
type SingletonInverseDemand struct {
	Source *variable.Descriptor
}

// CreateExternalizedSupply implements variable.Demand.
func (d SingletonInverseDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply {
	return NewSingletonInverseSupply(d.Source)
}

// SingletonInverseSupply indexes value -> entity for one variable. Entries are
// retracted on the before side of a change and inserted on the after side.
type SingletonInverseSupply struct {
	variable.NopEntityHooks
	source  *variable.Descriptor
	inverse map[any]any
}

// NewSingletonInverseSupply creates an empty supply for source.
func NewSingletonInverseSupply(source *variable.Descriptor) *SingletonInverseSupply {
	return &SingletonInverseSupply{source: source, inverse: make(map[any]any)}
}

// SourceVariables implements variable.SourcedListener.
func (s *SingletonInverseSupply) SourceVariables() []*variable.Descriptor {
	return []*variable.Descriptor{s.source}
}

// ResetWorkingSolution rebuilds the index from every entity.
func (s *SingletonInverseSupply) ResetWorkingSolution(sd variable.ScoreDirector) {
	clear(s.inverse)
	desc := sd.SolutionDescriptor()
	desc.VisitAllEntities(sd.WorkingSolution(), func(entity any) {
		if s.source.Entity().Matches(entity) {
			s.insert(entity)
		}
	})
}

func (s *SingletonInverseSupply) AfterEntityAdded(_ variable.ScoreDirector, entity any) {
	s.insert(entity)
}

func (s *SingletonInverseSupply) BeforeEntityRemoved(_ variable.ScoreDirector, entity any) {
	s.retract(entity)
}

func (s *SingletonInverseSupply) BeforeVariableChanged(_ variable.ScoreDirector, entity any) {
	s.retract(entity)
}

func (s *SingletonInverseSupply) AfterVariableChanged(_ variable.ScoreDirector, entity any) {
	s.insert(entity)
}

// Close drops the index.
func (s *SingletonInverseSupply) Close() {
	s.inverse = nil
}

func (s *SingletonInverseSupply) insert(entity any) {
	value := normalize(s.source.Get(entity))
	if value == nil {
		return
	}
	if existing, ok := s.inverse[value]; ok && existing != entity {
		panic(&TrailingEntityError{
			Variable: s.source.String(),
			Value:    value,
			Existing: existing,
			Entity:   entity,
		})
	}
	s.inverse[value] = entity
}

func (s *SingletonInverseSupply) retract(entity any) {
	value := normalize(s.source.Get(entity))
	if value == nil {
		return
	}
	if existing, ok := s.inverse[value]; !ok || existing != entity {
		panic(fmt.Sprintf("the supply for %s is corrupted: entity (%v) for value (%v) is not the existing inverse (%v)",
			s.source, entity, value, existing))
	}
	delete(s.inverse, value)
}

// InverseSingleton returns the entity pointing at value, or nil.
func (s *SingletonInverseSupply) InverseSingleton(value any) any {
	return s.inverse[normalize(value)]
}
