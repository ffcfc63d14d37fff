package listener

import (
	"fmt"
	"log/slog"

	"github.com/roach88/umbra/internal/variable"
)

// Observer is told about propagation activity. The trace recorder and the
// metrics collector implement it.
type Observer interface {
	// NotificationFired is called after a listener after-hook ran.
	NotificationFired(name string, globalOrder int, n Notification)
	// SupplyDemanded is called for every demand, cached or not.
	SupplyDemanded(d variable.Demand, cached bool)
	// QueuesTriggered is called after every trigger with the number of
	// after-hooks that fired.
	QueuesTriggered(fired int)
}

// SupportOption configures a Support.
type SupportOption func(*Support)

// WithObserver adds an observer. Observers are called in the order added.
func WithObserver(o Observer) SupportOption {
	return func(s *Support) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithSupportLogger sets the logger. Default: slog.Default().
func WithSupportLogger(l *slog.Logger) SupportOption {
	return func(s *Support) {
		if l != nil {
			s.logger = l
		}
	}
}

// Support fans mutations out to the notifiables of one score director and
// owns its supply cache.
//
// Support is not safe for concurrent use. Each score director owns exactly
// one Support.
type Support struct {
	sd       variable.ScoreDirector
	registry *Registry
	supplies map[variable.Demand]variable.Supply
	byShadow map[*variable.Descriptor]Notifiable

	nextGlobalOrder int
	queuesEmpty     bool
	solutionSet     bool
	closed          bool

	observers []Observer
	logger    *slog.Logger
}

// NewSupport creates the listener support for sd. Call LinkVariableListeners
// before the first mutation.
func NewSupport(sd variable.ScoreDirector, opts ...SupportOption) *Support {
	s := &Support{
		sd:          sd,
		registry:    NewRegistry(),
		supplies:    make(map[variable.Demand]variable.Supply),
		byShadow:    make(map[*variable.Descriptor]Notifiable),
		queuesEmpty: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the notifiable registry.
func (s *Support) Registry() *Registry { return s.registry }

// LinkVariableListeners builds one listener per declared shadow variable and
// registers it against the shadow variable's sources.
func (s *Support) LinkVariableListeners() error {
	desc := s.sd.SolutionDescriptor()
	if !desc.IsLinked() {
		return fmt.Errorf("solution descriptor must be linked before its listeners")
	}
	s.queuesEmpty = true

	for _, v := range desc.ShadowVariables() {
		l := v.BuildListener()
		order := v.GlobalShadowOrder()
		if s.nextGlobalOrder <= order {
			s.nextGlobalOrder = order + 1
		}
		nf, err := newNotifiable(s.sd, l, sourcedOnList(v.Sources()), order, v.String(), s.fired)
		if err != nil {
			return fmt.Errorf("link %s: %w", v, err)
		}
		s.registry.Register(v.Sources(), nf)
		s.byShadow[v] = nf
		if d := v.ProvidedDemand(); d != nil {
			s.supplies[d] = l
		}
	}
	s.registry.Sort()

	s.logger.Debug("variable listeners linked",
		"notifiables", s.registry.Len(),
		"next_global_order", s.nextGlobalOrder)
	return nil
}

func sourcedOnList(sources []*variable.Descriptor) bool {
	for _, src := range sources {
		if src.IsList() {
			return true
		}
	}
	return false
}

func (s *Support) fired(nf Notifiable, n Notification) {
	for _, o := range s.observers {
		o.NotificationFired(nf.Name(), nf.GlobalOrder(), n)
	}
}

// Demand returns the cached supply for d, creating it on first use. A supply
// that is a SourcedListener is registered with the next unused global order,
// so it fires after every declared shadow listener.
func (s *Support) Demand(d variable.Demand) variable.Supply {
	if supply, ok := s.supplies[d]; ok {
		s.notifyDemand(d, true)
		return supply
	}

	supply := d.CreateExternalizedSupply(s.sd)
	if sl, ok := supply.(variable.SourcedListener); ok {
		nf, err := newNotifiable(s.sd, sl, sourcedOnList(sl.SourceVariables()), s.nextGlobalOrder, fmt.Sprintf("%T", sl), s.fired)
		if err != nil {
			panic(err)
		}
		s.nextGlobalOrder++
		s.registry.Register(sl.SourceVariables(), nf)
		// The new order is the highest, so the indexes stay sorted.
		if s.solutionSet {
			nf.reset()
		}
		s.logger.Debug("supply registered as listener",
			"supply", nf.Name(),
			"global_order", nf.GlobalOrder())
	}
	s.supplies[d] = supply
	s.notifyDemand(d, false)
	return supply
}

func (s *Support) notifyDemand(d variable.Demand, cached bool) {
	for _, o := range s.observers {
		o.SupplyDemanded(d, cached)
	}
}

// ResetWorkingSolution lets every listener rebuild its state from the
// working solution.
func (s *Support) ResetWorkingSolution() {
	for _, nf := range s.registry.All() {
		nf.reset()
	}
	s.solutionSet = true
	s.queuesEmpty = true
}

// Close closes every listener. The Support must not be used afterwards.
func (s *Support) Close() {
	if s.closed {
		return
	}
	for _, nf := range s.registry.All() {
		nf.close()
	}
	clear(s.supplies)
	s.closed = true
}

func (s *Support) notifyBefore(ns []Notifiable, n Notification) {
	for _, nf := range ns {
		nf.notifyBefore(n)
	}
	s.queuesEmpty = false
}

func (s *Support) notifyAfter(ns []Notifiable, n Notification) {
	for _, nf := range ns {
		nf.notifyAfter(n)
	}
}

// BeforeEntityAdded queues EntityAdded for every listener sourced on any
// variable of e.
func (s *Support) BeforeEntityAdded(e *variable.EntityDescriptor, entity any) {
	s.notifyBefore(s.registry.ForEntity(e), NewEntityAdded(entity))
}

// BeforeEntityRemoved queues EntityRemoved for every listener sourced on any
// variable of e.
func (s *Support) BeforeEntityRemoved(e *variable.EntityDescriptor, entity any) {
	s.notifyBefore(s.registry.ForEntity(e), NewEntityRemoved(entity))
}

// BeforeVariableChanged queues VariableChanged for every listener sourced
// on v.
func (s *Support) BeforeVariableChanged(v *variable.Descriptor, entity any) {
	s.notifyBefore(s.registry.ForVariable(v), NewVariableChanged(entity))
}

// BeforeElementAdded fires before-hooks of the listeners sourced on list
// variable v.
func (s *Support) BeforeElementAdded(v *variable.Descriptor, entity any, index int) {
	s.notifyBefore(s.registry.ForVariable(v), NewElementAdded(entity, index))
}

// AfterElementAdded fires after-hooks immediately.
func (s *Support) AfterElementAdded(v *variable.Descriptor, entity any, index int) {
	s.notifyAfter(s.registry.ForVariable(v), NewElementAdded(entity, index))
}

func (s *Support) BeforeElementRemoved(v *variable.Descriptor, entity any, index int) {
	s.notifyBefore(s.registry.ForVariable(v), NewElementRemoved(entity, index, nil))
}

func (s *Support) AfterElementRemoved(v *variable.Descriptor, entity any, index int, element any) {
	s.notifyAfter(s.registry.ForVariable(v), NewElementRemoved(entity, index, element))
}

func (s *Support) BeforeElementMoved(v *variable.Descriptor, source any, sourceIndex int, dest any, destIndex int) {
	s.notifyBefore(s.registry.ForVariable(v), NewElementMoved(source, sourceIndex, dest, destIndex))
}

func (s *Support) AfterElementMoved(v *variable.Descriptor, source any, sourceIndex int, dest any, destIndex int) {
	s.notifyAfter(s.registry.ForVariable(v), NewElementMoved(source, sourceIndex, dest, destIndex))
}

// BeforeListVariableChanged queues a range change. A second range change
// for the same entity before the next trigger widens the queued range.
func (s *Support) BeforeListVariableChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	s.notifyBefore(s.registry.ForVariable(v), NewListVariableChanged(entity, fromIndex, toIndex))
}

// AfterListVariableChanged widens the queued range to cover the list as it
// is after the mutation. The after-hook runs on the next trigger.
func (s *Support) AfterListVariableChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	s.merge(s.registry.ForVariable(v), NewListVariableChanged(entity, fromIndex, toIndex))
}

func (s *Support) BeforeSubListChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	s.notifyBefore(s.registry.ForVariable(v), NewSubListChanged(entity, fromIndex, toIndex))
}

func (s *Support) AfterSubListChanged(v *variable.Descriptor, entity any, fromIndex, toIndex int) {
	s.merge(s.registry.ForVariable(v), NewSubListChanged(entity, fromIndex, toIndex))
}

func (s *Support) merge(ns []Notifiable, n Notification) {
	for _, nf := range ns {
		if ln, ok := nf.(*listNotifiable); ok {
			ln.queue.merge(n)
		}
	}
}

// TriggerVariableListenersInNotificationQueues drains every queue in
// ascending global order. A shadow variable therefore sees all changes to
// its sources of the current move, and fires before any shadow variable
// sourced on it.
func (s *Support) TriggerVariableListenersInNotificationQueues() {
	fired := 0
	for _, nf := range s.registry.All() {
		fired += nf.triggerAll()
	}
	s.queuesEmpty = true
	for _, o := range s.observers {
		o.QueuesTriggered(fired)
	}
}

// ForceTriggerAllVariableListeners simulates a change of every genuine
// variable of every entity, without changing anything, and triggers.
func (s *Support) ForceTriggerAllVariableListeners() {
	desc := s.sd.SolutionDescriptor()
	desc.VisitAllEntities(s.sd.WorkingSolution(), func(entity any) {
		e := desc.MustFindEntityDescriptor(entity)
		for _, v := range e.GenuineVariables() {
			if v.IsList() {
				size := v.ListSize(entity)
				s.BeforeListVariableChanged(v, entity, 0, size)
				s.AfterListVariableChanged(v, entity, 0, size)
				continue
			}
			s.BeforeVariableChanged(v, entity)
		}
	})
	s.TriggerVariableListenersInNotificationQueues()
}

// AssertNotificationQueuesAreEmpty fails when a before-hook was called
// without a trigger afterwards.
func (s *Support) AssertNotificationQueuesAreEmpty() error {
	pending := 0
	for _, nf := range s.registry.All() {
		pending += nf.Pending()
	}
	if s.queuesEmpty && pending == 0 {
		return nil
	}
	return &StateError{
		Code: ErrCodeQueuesNotEmpty,
		Message: fmt.Sprintf("the notification queues might not be empty (%d pending) so shadow variables might be stale"+
			" and score calculation is unreliable. Maybe a ScoreDirector.Before*() method was called"+
			" without calling ScoreDirector.TriggerVariableListeners() before calculating the score", pending),
	}
}
