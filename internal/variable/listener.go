package variable

// ScoreDirector is the mutation surface moves and listeners work against.
//
// Every write to a planning variable must be bracketed by the matching
// Before/After pair. Listener after-hooks for basic variables are deferred
// until TriggerVariableListeners is called, typically once per move.
type ScoreDirector interface {
	SolutionDescriptor() *SolutionDescriptor
	WorkingSolution() any
	SupplyManager() SupplyManager

	BeforeEntityAdded(entity any)
	AfterEntityAdded(entity any)
	BeforeEntityRemoved(entity any)
	AfterEntityRemoved(entity any)

	BeforeVariableChanged(v *Descriptor, entity any)
	AfterVariableChanged(v *Descriptor, entity any)

	BeforeElementAdded(v *Descriptor, entity any, index int)
	AfterElementAdded(v *Descriptor, entity any, index int)
	BeforeElementRemoved(v *Descriptor, entity any, index int)
	AfterElementRemoved(v *Descriptor, entity any, index int, element any)
	BeforeElementMoved(v *Descriptor, source any, sourceIndex int, dest any, destIndex int)
	AfterElementMoved(v *Descriptor, source any, sourceIndex int, dest any, destIndex int)
	BeforeListVariableChanged(v *Descriptor, entity any, fromIndex, toIndex int)
	AfterListVariableChanged(v *Descriptor, entity any, fromIndex, toIndex int)
	BeforeSubListChanged(v *Descriptor, entity any, fromIndex, toIndex int)
	AfterSubListChanged(v *Descriptor, entity any, fromIndex, toIndex int)

	TriggerVariableListeners()
}

// Listener receives entity lifecycle events and is bound to one score
// director for its whole life.
type Listener interface {
	BeforeEntityAdded(sd ScoreDirector, entity any)
	AfterEntityAdded(sd ScoreDirector, entity any)
	BeforeEntityRemoved(sd ScoreDirector, entity any)
	AfterEntityRemoved(sd ScoreDirector, entity any)

	// ResetWorkingSolution rebuilds any state derived from the whole
	// working solution.
	ResetWorkingSolution(sd ScoreDirector)

	// Close releases resources. The listener is not used afterwards.
	Close()
}

// VariableListener maintains state sourced on basic or chained variables, or
// on other shadow variables.
type VariableListener interface {
	Listener
	BeforeVariableChanged(sd ScoreDirector, entity any)
	AfterVariableChanged(sd ScoreDirector, entity any)
}

// ListVariableListener maintains state sourced on a list variable.
//
// Element hooks fire synchronously in both directions because indices shift
// as the list is mutated. Range hooks (ListVariableChanged, SubListChanged)
// fire "before" synchronously and "after" on the next trigger.
type ListVariableListener interface {
	Listener
	BeforeElementAdded(sd ScoreDirector, entity any, index int)
	AfterElementAdded(sd ScoreDirector, entity any, index int)
	BeforeElementRemoved(sd ScoreDirector, entity any, index int)
	AfterElementRemoved(sd ScoreDirector, entity any, index int, element any)
	BeforeElementMoved(sd ScoreDirector, source any, sourceIndex int, dest any, destIndex int)
	AfterElementMoved(sd ScoreDirector, source any, sourceIndex int, dest any, destIndex int)
	BeforeListVariableChanged(sd ScoreDirector, entity any, fromIndex, toIndex int)
	AfterListVariableChanged(sd ScoreDirector, entity any, fromIndex, toIndex int)
}

// SourcedListener is a listener that knows its own sources. Supplies built
// on demand implement it so they can be registered for notifications.
type SourcedListener interface {
	Listener
	SourceVariables() []*Descriptor
}

// NopEntityHooks can be embedded to satisfy the lifecycle part of Listener.
type NopEntityHooks struct{}

func (NopEntityHooks) BeforeEntityAdded(ScoreDirector, any) {}
func (NopEntityHooks) AfterEntityAdded(ScoreDirector, any) {}
func (NopEntityHooks) BeforeEntityRemoved(ScoreDirector, any) {}
func (NopEntityHooks) AfterEntityRemoved(ScoreDirector, any) {}
func (NopEntityHooks) ResetWorkingSolution(ScoreDirector) {}
func (NopEntityHooks) Close() {}

// NopListHooks can be embedded by list listeners that only care about some
// of the list hooks.
type NopListHooks struct{ NopEntityHooks }

func (NopListHooks) BeforeElementAdded(ScoreDirector, any, int) {}
func (NopListHooks) AfterElementAdded(ScoreDirector, any, int) {}
func (NopListHooks) BeforeElementRemoved(ScoreDirector, any, int) {}
func (NopListHooks) AfterElementRemoved(ScoreDirector, any, int, any) {}
func (NopListHooks) BeforeElementMoved(ScoreDirector, any, int, any, int) {}
func (NopListHooks) AfterElementMoved(ScoreDirector, any, int, any, int) {}
func (NopListHooks) BeforeListVariableChanged(ScoreDirector, any, int, int) {}
func (NopListHooks) AfterListVariableChanged(ScoreDirector, any, int, int) {}
