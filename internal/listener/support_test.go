package listener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/umbra/internal/testutil"
	"github.com/roach88/umbra/internal/variable"
)

// =============================================================================
// Test model: Item.v (genuine) -> Item.s = v*10 -> Item.t = s+1
// =============================================================================

type item struct {
	name    string
	V, S, T int
	Idx     int
}

func (i *item) String() string { return i.name }

type route struct {
	name  string
	Stops []*item
}

func (r *route) String() string { return r.name }

type solution struct {
	items  []*item
	routes []*route
}

func visitSolution(s any, visit func(any)) {
	sol := s.(*solution)
	for _, i := range sol.items {
		visit(i)
	}
	for _, r := range sol.routes {
		visit(r)
	}
}

type providedDemand struct{}

func (providedDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply {
	panic("provided demands are registered at link time")
}

type model struct {
	desc     *variable.SolutionDescriptor
	v, s, tv *variable.Descriptor
	stops    *variable.Descriptor
	log      *testutil.Log
	sL, tL   *testutil.RecordingListener
	idxL     *testutil.RecordingListListener
	skipS    bool
}

func intVar(f func(*item) *int) (variable.Getter, variable.Setter) {
	return func(e any) any { return *f(e.(*item)) },
		func(e any, v any) { *f(e.(*item)) = v.(int) }
}

// update writes value through the bracket so downstream listeners hear it.
func update(sd variable.ScoreDirector, v *variable.Descriptor, entity any, value int) {
	if v.Get(entity).(int) == value {
		return
	}
	sd.BeforeVariableChanged(v, entity)
	v.Set(entity, value)
	sd.AfterVariableChanged(v, entity)
}

func newModel(t *testing.T) *model {
	t.Helper()
	m := &model{log: &testutil.Log{}}

	ie := variable.NewEntityDescriptor("Item", (*item)(nil))
	getV, setV := intVar(func(i *item) *int { return &i.V })
	getS, setS := intVar(func(i *item) *int { return &i.S })
	getT, setT := intVar(func(i *item) *int { return &i.T })
	m.v = ie.AddBasicVariable("v", getV, setV)

	// t is declared first so that global order, not declaration order, is
	// what sequences the listeners.
	m.tv = ie.AddShadowVariable("t", getT, setT, variable.ShadowConfig{
		Listener: func(*variable.Descriptor) variable.Listener {
			m.tL = &testutil.RecordingListener{Name: "t", Log: m.log, OnAfter: func(sd variable.ScoreDirector, e any) {
				update(sd, m.tv, e, e.(*item).S+1)
			}}
			return m.tL
		},
	})
	m.s = ie.AddShadowVariable("s", getS, setS, variable.ShadowConfig{
		Sources: []*variable.Descriptor{m.v},
		Listener: func(*variable.Descriptor) variable.Listener {
			m.sL = &testutil.RecordingListener{Name: "s", Log: m.log, OnAfter: func(sd variable.ScoreDirector, e any) {
				if !m.skipS {
					update(sd, m.s, e, e.(*item).V*10)
				}
			}}
			return m.sL
		},
		ProvidedDemand: providedDemand{},
	})
	m.tv.SetSources(m.s)

	re := variable.NewEntityDescriptor("Route", (*route)(nil))
	m.stops = re.AddListVariable("stops", func(e any) any { return e.(*route).Stops }, variable.ListAccess{
		Size:    func(e any) int { return len(e.(*route).Stops) },
		Element: func(e any, i int) any { return e.(*route).Stops[i] },
		Add: func(e any, i int, el any) {
			r := e.(*route)
			r.Stops = append(r.Stops[:i], append([]*item{el.(*item)}, r.Stops[i:]...)...)
		},
		Remove: func(e any, i int) any {
			r := e.(*route)
			el := r.Stops[i]
			r.Stops = append(r.Stops[:i], r.Stops[i+1:]...)
			return el
		},
	})
	getIdx, setIdx := intVar(func(i *item) *int { return &i.Idx })
	ie.AddShadowVariable("idx", getIdx, setIdx, variable.ShadowConfig{
		Sources: []*variable.Descriptor{m.stops},
		Listener: func(*variable.Descriptor) variable.Listener {
			m.idxL = &testutil.RecordingListListener{Name: "idx", Log: m.log}
			return m.idxL
		},
	})

	m.desc = variable.NewSolutionDescriptor(visitSolution, ie, re)
	require.NoError(t, m.desc.Link())
	return m
}

// fakeDirector forwards brackets to a Support the way the real score
// director does, without score calculation.
type fakeDirector struct {
	desc     *variable.SolutionDescriptor
	solution *solution
	support  *Support
}

func newFakeDirector(t *testing.T, m *model, sol *solution, opts ...SupportOption) *fakeDirector {
	t.Helper()
	d := &fakeDirector{desc: m.desc, solution: sol}
	d.support = NewSupport(d, opts...)
	require.NoError(t, d.support.LinkVariableListeners())
	d.support.ResetWorkingSolution()
	m.log.Reset()
	return d
}

func (d *fakeDirector) SolutionDescriptor() *variable.SolutionDescriptor { return d.desc }
func (d *fakeDirector) WorkingSolution() any                             { return d.solution }
func (d *fakeDirector) SupplyManager() variable.SupplyManager            { return d.support }

func (d *fakeDirector) BeforeEntityAdded(e any) {
	d.support.BeforeEntityAdded(d.desc.MustFindEntityDescriptor(e), e)
}
func (d *fakeDirector) AfterEntityAdded(any) {}
func (d *fakeDirector) BeforeEntityRemoved(e any) {
	d.support.BeforeEntityRemoved(d.desc.MustFindEntityDescriptor(e), e)
}
func (d *fakeDirector) AfterEntityRemoved(any) {}
func (d *fakeDirector) BeforeVariableChanged(v *variable.Descriptor, e any) {
	d.support.BeforeVariableChanged(v, e)
}
func (d *fakeDirector) AfterVariableChanged(*variable.Descriptor, any) {}
func (d *fakeDirector) BeforeElementAdded(v *variable.Descriptor, e any, i int) {
	d.support.BeforeElementAdded(v, e, i)
}
func (d *fakeDirector) AfterElementAdded(v *variable.Descriptor, e any, i int) {
	d.support.AfterElementAdded(v, e, i)
}
func (d *fakeDirector) BeforeElementRemoved(v *variable.Descriptor, e any, i int) {
	d.support.BeforeElementRemoved(v, e, i)
}
func (d *fakeDirector) AfterElementRemoved(v *variable.Descriptor, e any, i int, el any) {
	d.support.AfterElementRemoved(v, e, i, el)
}
func (d *fakeDirector) BeforeElementMoved(v *variable.Descriptor, s any, si int, t any, ti int) {
	d.support.BeforeElementMoved(v, s, si, t, ti)
}
func (d *fakeDirector) AfterElementMoved(v *variable.Descriptor, s any, si int, t any, ti int) {
	d.support.AfterElementMoved(v, s, si, t, ti)
}
func (d *fakeDirector) BeforeListVariableChanged(v *variable.Descriptor, e any, from, to int) {
	d.support.BeforeListVariableChanged(v, e, from, to)
}
func (d *fakeDirector) AfterListVariableChanged(v *variable.Descriptor, e any, from, to int) {
	d.support.AfterListVariableChanged(v, e, from, to)
}
func (d *fakeDirector) BeforeSubListChanged(v *variable.Descriptor, e any, from, to int) {
	d.support.BeforeSubListChanged(v, e, from, to)
}
func (d *fakeDirector) AfterSubListChanged(v *variable.Descriptor, e any, from, to int) {
	d.support.AfterSubListChanged(v, e, from, to)
}
func (d *fakeDirector) TriggerVariableListeners() {
	d.support.TriggerVariableListenersInNotificationQueues()
}

func (d *fakeDirector) changeV(m *model, it *item, value int) {
	d.BeforeVariableChanged(m.v, it)
	it.V = value
	d.AfterVariableChanged(m.v, it)
}

func recoverStateError(f func()) (se *StateError) {
	defer func() {
		if r := recover(); r != nil {
			se, _ = r.(*StateError)
		}
	}()
	f()
	return nil
}

// =============================================================================
// Linking
// =============================================================================

func TestSupport_LinkRegistersEveryShadowListener(t *testing.T) {
	m := newModel(t)
	d := newFakeDirector(t, m, &solution{})

	all := d.support.Registry().All()
	require.Len(t, all, 3)
	assert.Equal(t, "Item.s", all[0].Name())
	assert.Equal(t, "Item.t", all[1].Name())
	assert.Equal(t, "Item.idx", all[2].Name())
	assert.Equal(t, 1, m.sL.Resets)
	assert.Equal(t, 1, m.tL.Resets)
	assert.Equal(t, 1, m.idxL.Resets)
}

func TestSupport_LinkRequiresLinkedDescriptor(t *testing.T) {
	ie := variable.NewEntityDescriptor("Item", (*item)(nil))
	d := &fakeDirector{desc: variable.NewSolutionDescriptor(visitSolution, ie)}
	d.support = NewSupport(d)

	assert.Error(t, d.support.LinkVariableListeners())
}

func TestSupport_ProvidedDemandReturnsDeclaredListener(t *testing.T) {
	m := newModel(t)
	d := newFakeDirector(t, m, &solution{})

	assert.Same(t, m.sL, d.support.Demand(providedDemand{}))
}

// =============================================================================
// Ordering and deduplication
// =============================================================================

func TestSupport_DependentShadowFiresAfterItsSource(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a", V: 1, S: 10, T: 11}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})

	d.changeV(m, a, 2)
	d.TriggerVariableListeners()

	assert.Equal(t, []string{
		"s.BeforeVariableChanged(a)",
		"s.AfterVariableChanged(a)",
		"t.BeforeVariableChanged(a)",
		"t.AfterVariableChanged(a)",
	}, m.log.Calls)
	assert.Equal(t, 20, a.S)
	assert.Equal(t, 21, a.T, "t must observe the updated s")
}

func TestSupport_DuplicateNotificationFiresOnce(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a", V: 1, S: 10, T: 11}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})

	d.changeV(m, a, 2)
	d.changeV(m, a, 3)
	d.TriggerVariableListeners()

	assert.Equal(t, 1, m.log.Count("s.BeforeVariableChanged(a)"))
	assert.Equal(t, 1, m.log.Count("s.AfterVariableChanged(a)"))
	assert.Equal(t, 30, a.S)
	assert.Equal(t, 31, a.T)
}

func TestSupport_TriggerDrainsEveryQueue(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a", V: 1}
	b := &item{name: "b", V: 2}
	d := newFakeDirector(t, m, &solution{items: []*item{a, b}})

	d.changeV(m, a, 5)
	d.changeV(m, b, 6)
	d.BeforeEntityAdded(a)
	assert.Equal(t, 3, d.support.Registry().All()[0].Pending())

	d.TriggerVariableListeners()

	for _, nf := range d.support.Registry().All() {
		assert.Equal(t, 0, nf.Pending(), nf.Name())
	}
	assert.NoError(t, d.support.AssertNotificationQueuesAreEmpty())
}

func TestSupport_FanOut(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a"}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})

	d.BeforeVariableChanged(m.v, a)
	assert.Equal(t, []string{"s.BeforeVariableChanged(a)"}, m.log.Calls)
	d.TriggerVariableListeners()
	m.log.Reset()

	d.BeforeEntityAdded(a)
	assert.Equal(t, []string{
		"s.BeforeEntityAdded(a)",
		"t.BeforeEntityAdded(a)",
	}, m.log.Calls)

	m.log.Reset()
	r := &route{name: "r"}
	d.BeforeEntityAdded(r)
	assert.Equal(t, []string{"idx.BeforeEntityAdded(r)"}, m.log.Calls)
}

func TestSupport_EntityRemovedIsQueued(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a"}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})

	d.BeforeEntityRemoved(a)
	assert.Equal(t, 0, m.log.Count("s.AfterEntityRemoved(a)"))

	d.TriggerVariableListeners()
	assert.Equal(t, 1, m.log.Count("s.AfterEntityRemoved(a)"))
	assert.Equal(t, 1, m.log.Count("t.AfterEntityRemoved(a)"))
}

// =============================================================================
// Protocol errors
// =============================================================================

func TestSupport_AssertQueuesEmptyFailsWithoutTrigger(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a"}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})

	d.changeV(m, a, 1)

	err := d.support.AssertNotificationQueuesAreEmpty()
	require.Error(t, err)
	assert.True(t, IsStateError(err, ErrCodeQueuesNotEmpty))
	assert.Contains(t, err.Error(), "TriggerVariableListeners()")

	d.TriggerVariableListeners()
	assert.NoError(t, d.support.AssertNotificationQueuesAreEmpty())
}

func TestSupport_ReentrantListenerPanics(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a"}
	b := &item{name: "b"}
	d := newFakeDirector(t, m, &solution{items: []*item{a, b}})
	m.sL.OnAfter = func(sd variable.ScoreDirector, e any) {
		// Touching a source of s from inside s grows the queue being drained.
		if e == a {
			sd.BeforeVariableChanged(m.v, b)
		}
	}

	d.changeV(m, a, 1)
	se := recoverStateError(d.TriggerVariableListeners)

	require.NotNil(t, se)
	assert.Equal(t, ErrCodeReentrantListener, se.Code)
	assert.Contains(t, se.Listener, "Item.s")
	assert.Contains(t, se.Listener, "*testutil.RecordingListener")
}

// =============================================================================
// Supply / Demand
// =============================================================================

type recordingDemand struct {
	source  *variable.Descriptor
	log     *testutil.Log
	created *int
}

func (d recordingDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply {
	*d.created++
	return &testutil.RecordingListener{Name: "supply", Log: d.log, Sources: []*variable.Descriptor{d.source}}
}

func TestSupport_DemandIsCached(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a", V: 1, S: 10, T: 11}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})
	created := 0
	demand := recordingDemand{source: m.v, log: m.log, created: &created}

	first := variable.DemandAs[*testutil.RecordingListener](d.support, demand)
	second := variable.DemandAs[*testutil.RecordingListener](d.support, recordingDemand{source: m.v, log: m.log, created: &created})

	assert.Same(t, first, second)
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, first.Resets, "working solution already set")
	require.Equal(t, 4, d.support.Registry().Len())
	assert.Equal(t, 3, d.support.Registry().All()[3].GlobalOrder())
}

func TestSupport_DemandedListenerFiresAfterDeclaredShadows(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a", V: 1, S: 10, T: 11}
	d := newFakeDirector(t, m, &solution{items: []*item{a}})
	created := 0
	d.support.Demand(recordingDemand{source: m.v, log: m.log, created: &created})

	d.changeV(m, a, 2)
	d.TriggerVariableListeners()

	assert.Less(t, m.log.IndexOf("t.AfterVariableChanged(a)"), m.log.IndexOf("supply.AfterVariableChanged(a)"))
	assert.Less(t, m.log.IndexOf("s.AfterVariableChanged(a)"), m.log.IndexOf("supply.AfterVariableChanged(a)"))
}

func TestSupport_DemandBeforeSolutionSkipsReset(t *testing.T) {
	m := newModel(t)
	d := &fakeDirector{desc: m.desc}
	d.support = NewSupport(d)
	require.NoError(t, d.support.LinkVariableListeners())
	created := 0

	supply := variable.DemandAs[*testutil.RecordingListener](d.support, recordingDemand{source: m.v, log: m.log, created: &created})

	assert.Equal(t, 0, supply.Resets)
}

// =============================================================================
// List variables
// =============================================================================

func TestSupport_ListElementRemoved(t *testing.T) {
	m := newModel(t)
	x, y, z := &item{name: "x"}, &item{name: "y"}, &item{name: "z"}
	r := &route{name: "r", Stops: []*item{x, y, z}}
	d := newFakeDirector(t, m, &solution{items: []*item{x, y, z}, routes: []*route{r}})

	d.BeforeElementRemoved(m.stops, r, 1)
	removed := m.stops.RemoveElement(r, 1)
	d.AfterElementRemoved(m.stops, r, 1, removed)
	d.BeforeListVariableChanged(m.stops, r, 1, 1)
	d.AfterListVariableChanged(m.stops, r, 1, 2)

	assert.Equal(t, []string{
		"idx.BeforeElementRemoved(r, 1)",
		"idx.AfterElementRemoved(r, 1, y)",
		"idx.BeforeListVariableChanged(r, 1, 1)",
	}, m.log.Calls, "element after-hooks are synchronous")

	d.TriggerVariableListeners()
	assert.Equal(t, 1, m.log.Count("idx.AfterElementRemoved(r, 1, y)"))
	assert.Equal(t, 1, m.log.Count("idx.AfterListVariableChanged(r, 1, 2)"), "range widened by the after side")
	assert.Equal(t, []*item{x, z}, r.Stops)
}

func TestSupport_ListElementMovedCarriesNewIndices(t *testing.T) {
	m := newModel(t)
	x, y := &item{name: "x"}, &item{name: "y"}
	r1 := &route{name: "r1", Stops: []*item{x, y}}
	r2 := &route{name: "r2"}
	d := newFakeDirector(t, m, &solution{items: []*item{x, y}, routes: []*route{r1, r2}})

	d.BeforeElementMoved(m.stops, r1, 1, r2, 0)
	m.stops.AddElement(r2, 0, m.stops.RemoveElement(r1, 1))
	d.AfterElementMoved(m.stops, r1, 1, r2, 0)

	assert.Equal(t, []string{
		"idx.BeforeElementMoved(r1, 1, r2, 0)",
		"idx.AfterElementMoved(r1, 1, r2, 0)",
	}, m.log.Calls)
}

func TestSupport_ListRangesForSameEntityAreMerged(t *testing.T) {
	m := newModel(t)
	r := &route{name: "r", Stops: []*item{{name: "x"}, {name: "y"}, {name: "z"}}}
	d := newFakeDirector(t, m, &solution{routes: []*route{r}})

	d.BeforeListVariableChanged(m.stops, r, 2, 3)
	d.AfterListVariableChanged(m.stops, r, 2, 3)
	d.BeforeSubListChanged(m.stops, r, 1, 2)
	d.AfterSubListChanged(m.stops, r, 1, 2)
	d.BeforeListVariableChanged(m.stops, r, 0, 1)
	d.AfterListVariableChanged(m.stops, r, 0, 1)
	d.TriggerVariableListeners()

	assert.Equal(t, 1, m.log.Count("idx.BeforeListVariableChanged(r, 2, 3)"))
	assert.Equal(t, 0, m.log.Count("idx.BeforeListVariableChanged(r, 0, 1)"), "second range is a duplicate")
	assert.Equal(t, 1, m.log.Count("idx.AfterListVariableChanged(r, 0, 3)"))
	assert.Equal(t, 1, m.log.Count("idx.AfterListVariableChanged(r, 1, 2)"), "sub-list change is its own variant")
}

// =============================================================================
// Lifecycle and observers
// =============================================================================

type countingObserver struct {
	fired     []string
	demands   []bool
	triggered []int
}

func (o *countingObserver) NotificationFired(name string, _ int, n Notification) {
	o.fired = append(o.fired, name+":"+n.String())
}
func (o *countingObserver) SupplyDemanded(_ variable.Demand, cached bool) {
	o.demands = append(o.demands, cached)
}
func (o *countingObserver) QueuesTriggered(fired int) { o.triggered = append(o.triggered, fired) }

func TestSupport_ObserverSeesFirings(t *testing.T) {
	m := newModel(t)
	a := &item{name: "a", V: 1, S: 10, T: 11}
	obs := &countingObserver{}
	d := newFakeDirector(t, m, &solution{items: []*item{a}}, WithObserver(obs))

	d.changeV(m, a, 2)
	d.TriggerVariableListeners()
	d.support.Demand(providedDemand{})

	assert.Equal(t, []string{
		"Item.s:variable_changed(a)",
		"Item.t:variable_changed(a)",
	}, obs.fired)
	assert.Equal(t, []int{2}, obs.triggered)
	assert.Equal(t, []bool{true}, obs.demands)
}

func TestSupport_CloseClosesListeners(t *testing.T) {
	m := newModel(t)
	d := newFakeDirector(t, m, &solution{})

	d.support.Close()
	d.support.Close()

	assert.True(t, m.sL.Closed)
	assert.True(t, m.tL.Closed)
	assert.True(t, m.idxL.Closed)
}
