package variable

import (
	"fmt"
	"reflect"
)

// Kind distinguishes variable flavours.
type Kind int

const (
	// KindBasic is a genuine variable holding a single value.
	KindBasic Kind = iota + 1
	// KindChained is a genuine variable whose values form chains that end in
	// an anchor.
	KindChained
	// KindList is a genuine variable holding an ordered list of values.
	KindList
	// KindShadow is derived state maintained by a listener.
	KindShadow
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindChained:
		return "chained"
	case KindList:
		return "list"
	case KindShadow:
		return "shadow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Getter reads a variable value from an entity.
type Getter func(entity any) any

// Setter writes a variable value on an entity.
type Setter func(entity any, value any)

// ListAccess gives the engine access to a list variable.
type ListAccess struct {
	Size    func(entity any) int
	Element func(entity any, index int) any
	Add     func(entity any, index int, element any)
	Remove  func(entity any, index int) any
}

// ListenerFactory builds the listener that maintains a shadow variable.
// It is called once per score director.
type ListenerFactory func(shadow *Descriptor) Listener

// ShadowConfig declares how a shadow variable is maintained.
type ShadowConfig struct {
	// Sources are the variables the shadow variable is derived from.
	Sources []*Descriptor

	// Listener builds the listener that updates the shadow variable.
	Listener ListenerFactory

	// RequiresUniqueEntityEvents asks for at most one before/after pair per
	// entity and notification kind between two flushes.
	RequiresUniqueEntityEvents bool

	// ProvidedDemand, if set, makes the listener available through the supply
	// manager under this demand.
	ProvidedDemand Demand
}

type shadowSpec struct {
	ShadowConfig
	globalOrder int
}

// Descriptor identifies one variable on one entity type.
type Descriptor struct {
	name   string
	entity *EntityDescriptor
	kind   Kind
	get    Getter
	set    Setter
	list   *ListAccess
	shadow *shadowSpec
}

// Name returns the variable name.
func (v *Descriptor) Name() string { return v.name }

// Kind returns the variable kind.
func (v *Descriptor) Kind() Kind { return v.kind }

// Entity returns the owning entity descriptor.
func (v *Descriptor) Entity() *EntityDescriptor { return v.entity }

// IsGenuine reports whether moves assign this variable directly.
func (v *Descriptor) IsGenuine() bool { return v.kind != KindShadow }

// IsList reports whether this is a genuine list variable.
func (v *Descriptor) IsList() bool { return v.kind == KindList }

// IsShadow reports whether this is a shadow variable.
func (v *Descriptor) IsShadow() bool { return v.kind == KindShadow }

// Get reads the value from entity.
func (v *Descriptor) Get(entity any) any { return v.get(entity) }

// Set writes value on entity. Callers must bracket the write with the score
// director's before/after hooks.
func (v *Descriptor) Set(entity any, value any) { v.set(entity, value) }

// String returns "Entity.variable".
func (v *Descriptor) String() string {
	if v.entity == nil {
		return v.name
	}
	return v.entity.name + "." + v.name
}

// ListSize returns the length of a list variable on entity.
func (v *Descriptor) ListSize(entity any) int {
	v.mustBeList()
	return v.list.Size(entity)
}

// Element returns the element at index of a list variable on entity.
func (v *Descriptor) Element(entity any, index int) any {
	v.mustBeList()
	return v.list.Element(entity, index)
}

// AddElement inserts element at index of a list variable on entity.
func (v *Descriptor) AddElement(entity any, index int, element any) {
	v.mustBeList()
	v.list.Add(entity, index, element)
}

// RemoveElement removes and returns the element at index of a list variable
// on entity.
func (v *Descriptor) RemoveElement(entity any, index int) any {
	v.mustBeList()
	return v.list.Remove(entity, index)
}

// IndexOf returns the position of element in the list variable on entity, or
// -1 if it is not there.
func (v *Descriptor) IndexOf(entity any, element any) int {
	v.mustBeList()
	n := v.list.Size(entity)
	for i := 0; i < n; i++ {
		if v.list.Element(entity, i) == element {
			return i
		}
	}
	return -1
}

func (v *Descriptor) mustBeList() {
	if v.list == nil {
		panic(fmt.Sprintf("variable %s is not a list variable", v))
	}
}

// Sources returns the source variables of a shadow variable.
func (v *Descriptor) Sources() []*Descriptor {
	if v.shadow == nil {
		return nil
	}
	return v.shadow.Sources
}

// SetSources replaces the sources of a shadow variable. It allows a shadow
// variable to be declared before the variables it depends on. Call Link
// again afterwards.
func (v *Descriptor) SetSources(sources ...*Descriptor) {
	if v.shadow == nil {
		panic(fmt.Sprintf("variable %s is not a shadow variable", v))
	}
	v.shadow.Sources = sources
}

// GlobalShadowOrder returns the topological rank assigned by Link. Lower
// orders are triggered first. Returns -1 for genuine variables.
func (v *Descriptor) GlobalShadowOrder() int {
	if v.shadow == nil {
		return -1
	}
	return v.shadow.globalOrder
}

// RequiresUniqueEntityEvents reports the shadow declaration flag.
func (v *Descriptor) RequiresUniqueEntityEvents() bool {
	return v.shadow != nil && v.shadow.RequiresUniqueEntityEvents
}

// ProvidedDemand returns the demand the shadow listener is registered under,
// or nil.
func (v *Descriptor) ProvidedDemand() Demand {
	if v.shadow == nil {
		return nil
	}
	return v.shadow.ProvidedDemand
}

// BuildListener creates the listener instance for a shadow variable.
func (v *Descriptor) BuildListener() Listener {
	if v.shadow == nil || v.shadow.Listener == nil {
		return nil
	}
	return v.shadow.Listener(v)
}

// EntityDescriptor describes one planning entity type.
type EntityDescriptor struct {
	name      string
	typ       reflect.Type
	genuine   []*Descriptor
	shadows   []*Descriptor
	variables map[string]*Descriptor
	dupes     []*Descriptor
}

// NewEntityDescriptor creates an entity descriptor. The prototype is a typed
// nil pointer of the entity type, used to resolve entities to their
// descriptor. Entities are identified by pointer, so it panics on any other
// prototype.
func NewEntityDescriptor(name string, prototype any) *EntityDescriptor {
	if t := reflect.TypeOf(prototype); t == nil || t.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("entity %s: prototype must be a pointer, got %T", name, prototype))
	}
	return &EntityDescriptor{
		name:      name,
		typ:       reflect.TypeOf(prototype),
		variables: make(map[string]*Descriptor),
	}
}

// Name returns the entity type name.
func (e *EntityDescriptor) Name() string { return e.name }

// String returns the entity type name.
func (e *EntityDescriptor) String() string { return e.name }

// AddBasicVariable declares a genuine single-valued variable.
func (e *EntityDescriptor) AddBasicVariable(name string, get Getter, set Setter) *Descriptor {
	return e.addGenuine(&Descriptor{name: name, kind: KindBasic, get: get, set: set})
}

// AddChainedVariable declares a genuine chained variable.
func (e *EntityDescriptor) AddChainedVariable(name string, get Getter, set Setter) *Descriptor {
	return e.addGenuine(&Descriptor{name: name, kind: KindChained, get: get, set: set})
}

// AddListVariable declares a genuine list variable. Get returns the list
// itself; Set is not supported on list variables.
func (e *EntityDescriptor) AddListVariable(name string, get Getter, access ListAccess) *Descriptor {
	return e.addGenuine(&Descriptor{
		name: name,
		kind: KindList,
		get:  get,
		set: func(any, any) {
			panic(fmt.Sprintf("list variable %s.%s cannot be set, use element operations", e.name, name))
		},
		list: &access,
	})
}

// AddShadowVariable declares a shadow variable maintained by a listener.
func (e *EntityDescriptor) AddShadowVariable(name string, get Getter, set Setter, cfg ShadowConfig) *Descriptor {
	v := &Descriptor{
		name:   name,
		entity: e,
		kind:   KindShadow,
		get:    get,
		set:    set,
		shadow: &shadowSpec{ShadowConfig: cfg, globalOrder: -1},
	}
	e.register(v)
	e.shadows = append(e.shadows, v)
	return v
}

func (e *EntityDescriptor) addGenuine(v *Descriptor) *Descriptor {
	v.entity = e
	e.register(v)
	e.genuine = append(e.genuine, v)
	return v
}

// register records the variable by name. A duplicate name is reported by
// Link rather than here so that declarations stay chainable.
func (e *EntityDescriptor) register(v *Descriptor) {
	if _, exists := e.variables[v.name]; exists {
		e.dupes = append(e.dupes, v)
		return
	}
	e.variables[v.name] = v
}

// Variable returns the variable with the given name, or nil.
func (e *EntityDescriptor) Variable(name string) *Descriptor {
	return e.variables[name]
}

// GenuineVariables returns the genuine variables in declaration order.
func (e *EntityDescriptor) GenuineVariables() []*Descriptor { return e.genuine }

// ShadowVariables returns the shadow variables in declaration order.
func (e *EntityDescriptor) ShadowVariables() []*Descriptor { return e.shadows }

// DeclaredVariables returns genuine then shadow variables.
func (e *EntityDescriptor) DeclaredVariables() []*Descriptor {
	all := make([]*Descriptor, 0, len(e.genuine)+len(e.shadows))
	all = append(all, e.genuine...)
	return append(all, e.shadows...)
}

// Matches reports whether entity is an instance of this entity type.
func (e *EntityDescriptor) Matches(entity any) bool {
	return entity != nil && reflect.TypeOf(entity) == e.typ
}

// EntityVisitor enumerates every entity of a solution.
type EntityVisitor func(solution any, visit func(entity any))

// SolutionDescriptor describes a whole planning solution.
type SolutionDescriptor struct {
	entities []*EntityDescriptor
	byType   map[reflect.Type]*EntityDescriptor
	visitor  EntityVisitor
	linked   bool
}

// NewSolutionDescriptor creates a solution descriptor over the given entity
// types. Call Link before handing it to a score director.
func NewSolutionDescriptor(visitor EntityVisitor, entities ...*EntityDescriptor) *SolutionDescriptor {
	s := &SolutionDescriptor{
		entities: entities,
		byType:   make(map[reflect.Type]*EntityDescriptor, len(entities)),
		visitor:  visitor,
	}
	for _, e := range entities {
		s.byType[e.typ] = e
	}
	return s
}

// EntityDescriptors returns the entity descriptors in declaration order.
func (s *SolutionDescriptor) EntityDescriptors() []*EntityDescriptor { return s.entities }

// FindEntityDescriptor resolves an entity to its descriptor.
func (s *SolutionDescriptor) FindEntityDescriptor(entity any) (*EntityDescriptor, bool) {
	if entity == nil {
		return nil, false
	}
	e, ok := s.byType[reflect.TypeOf(entity)]
	return e, ok
}

// MustFindEntityDescriptor is FindEntityDescriptor that panics on unknown
// entity types.
func (s *SolutionDescriptor) MustFindEntityDescriptor(entity any) *EntityDescriptor {
	e, ok := s.FindEntityDescriptor(entity)
	if !ok {
		panic(fmt.Sprintf("entity %v (%T) is not a planning entity of this solution", entity, entity))
	}
	return e
}

// VisitAllEntities calls fn for every entity of solution.
func (s *SolutionDescriptor) VisitAllEntities(solution any, fn func(entity any)) {
	if solution == nil || s.visitor == nil {
		return
	}
	s.visitor(solution, fn)
}

// ShadowVariables returns every shadow variable, sorted by global order once
// linked.
func (s *SolutionDescriptor) ShadowVariables() []*Descriptor {
	var all []*Descriptor
	for _, e := range s.entities {
		all = append(all, e.shadows...)
	}
	if s.linked {
		sortByGlobalOrder(all)
	}
	return all
}

// IsLinked reports whether Link succeeded.
func (s *SolutionDescriptor) IsLinked() bool { return s.linked }
