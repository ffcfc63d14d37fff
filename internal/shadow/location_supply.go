package shadow

import (
	"github.com/roach88/umbra/internal/variable"
)

// Location is where an element of a list variable sits.
type Location struct {
	Entity any
	Index  int
}

// IndexSupply resolves an element to its position in its list.
type IndexSupply interface {
	// IndexOf returns -1 for an unassigned element.
	IndexOf(element any) int
}

// InverseSupply resolves an element to the entity whose list holds it.
type InverseSupply interface {
	// InverseOf returns nil for an unassigned element.
	InverseOf(element any) any
}

// ListElementLocationDemand requests a ListElementLocationSupply.
type ListElementLocationDemand struct {
	Source *variable.Descriptor
}

func (d ListElementLocationDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply {
	return NewListElementLocationSupply(d.Source)
}

// IndexDemand requests an IndexSupply. A declared index shadow variable can
// provide it; otherwise a ListElementLocationSupply is externalized.
type IndexDemand struct {
	Source *variable.Descriptor
}

func (d IndexDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply {
	return NewListElementLocationSupply(d.Source)
}

// ListInverseDemand requests an InverseSupply. A declared inverse relation
// shadow variable can provide it; otherwise a ListElementLocationSupply is
// externalized.
type ListInverseDemand struct {
	Source *variable.Descriptor
}

func (d ListInverseDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply {
	return NewListElementLocationSupply(d.Source)
}

// ListElementLocationSupply tracks the location of every assigned element of
// one list variable. It keeps a copy of each list as last indexed so that
// elements which left a list can be dropped without scanning the whole map.
type ListElementLocationSupply struct {
	variable.NopListHooks
	source    *variable.Descriptor
	locations map[any]Location
	lists     map[any][]any
}

// NewListElementLocationSupply creates an empty supply for the list variable
// source.
func NewListElementLocationSupply(source *variable.Descriptor) *ListElementLocationSupply {
	return &ListElementLocationSupply{
		source:    source,
		locations: make(map[any]Location),
		lists:     make(map[any][]any),
	}
}

// SourceVariables implements variable.SourcedListener.
func (s *ListElementLocationSupply) SourceVariables() []*variable.Descriptor {
	return []*variable.Descriptor{s.source}
}

func (s *ListElementLocationSupply) ResetWorkingSolution(sd variable.ScoreDirector) {
	clear(s.locations)
	clear(s.lists)
	sd.SolutionDescriptor().VisitAllEntities(sd.WorkingSolution(), func(entity any) {
		if s.source.Entity().Matches(entity) {
			s.reindex(entity, 0)
		}
	})
}

func (s *ListElementLocationSupply) AfterEntityAdded(_ variable.ScoreDirector, entity any) {
	s.reindex(entity, 0)
}

func (s *ListElementLocationSupply) AfterEntityRemoved(_ variable.ScoreDirector, entity any) {
	for _, element := range s.lists[entity] {
		if loc, ok := s.locations[element]; ok && loc.Entity == entity {
			delete(s.locations, element)
		}
	}
	delete(s.lists, entity)
}

func (s *ListElementLocationSupply) AfterElementAdded(_ variable.ScoreDirector, entity any, index int) {
	s.reindex(entity, index)
}

func (s *ListElementLocationSupply) AfterElementRemoved(_ variable.ScoreDirector, entity any, index int, _ any) {
	s.reindex(entity, index)
}

func (s *ListElementLocationSupply) AfterElementMoved(_ variable.ScoreDirector, src any, srcIndex int, dst any, dstIndex int) {
	if src == dst {
		s.reindex(src, min(srcIndex, dstIndex))
		return
	}
	s.reindex(src, srcIndex)
	s.reindex(dst, dstIndex)
}

func (s *ListElementLocationSupply) AfterListVariableChanged(_ variable.ScoreDirector, entity any, from, _ int) {
	s.reindex(entity, from)
}

func (s *ListElementLocationSupply) Close() {
	s.locations = nil
	s.lists = nil
}

// reindex refreshes every position of entity's list from index from on.
// Positions before from are unchanged by construction.
func (s *ListElementLocationSupply) reindex(entity any, from int) {
	from = max(from, 0)
	old := s.lists[entity]
	from = min(from, len(old))
	for i := from; i < len(old); i++ {
		if loc, ok := s.locations[old[i]]; ok && loc.Entity == entity {
			delete(s.locations, old[i])
		}
	}
	size := s.source.ListSize(entity)
	current := make([]any, size)
	copy(current, old[:min(from, size)])
	for i := from; i < size; i++ {
		element := s.source.Element(entity, i)
		current[i] = element
		s.locations[element] = Location{Entity: entity, Index: i}
	}
	s.lists[entity] = current
}

// LocationOf returns where element sits, or false if it is unassigned.
func (s *ListElementLocationSupply) LocationOf(element any) (Location, bool) {
	loc, ok := s.locations[element]
	return loc, ok
}

// IndexOf implements IndexSupply.
func (s *ListElementLocationSupply) IndexOf(element any) int {
	if loc, ok := s.locations[element]; ok {
		return loc.Index
	}
	return -1
}

// InverseOf implements InverseSupply.
func (s *ListElementLocationSupply) InverseOf(element any) any {
	if loc, ok := s.locations[element]; ok {
		return loc.Entity
	}
	return nil
}
