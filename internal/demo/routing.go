// Package demo holds two small planning models used by tests, the scenario
// harness and the CLI: a vehicle routing model built on a list variable, and
// a chained model of drivers serving customers.
package demo

import (
	"fmt"

	"github.com/roach88/umbra/internal/shadow"
	"github.com/roach88/umbra/internal/variable"
)

// =============================================================================
// Routing: Vehicle.visits (list) -> Visit.{vehicle, index, previous, next, arrival}
// =============================================================================

// Vehicle drives its visits in order, starting from its depot.
type Vehicle struct {
	Name   string
	Depot  int
	Visits []*Visit
}

func (v *Vehicle) String() string { return v.Name }

// Visit is a location a vehicle must serve. Every field below Due is a shadow
// variable.
type Visit struct {
	Name     string
	Location int
	Service  int
	Due      int

	Vehicle  *Vehicle
	Index    int
	Previous *Visit
	Next     *Visit
	// Arrival is the time the vehicle reaches this visit; 0 when unassigned.
	Arrival int
}

func (v *Visit) String() string { return v.Name }

// NewVisit creates an unassigned visit.
func NewVisit(name string, location, service, due int) *Visit {
	return &Visit{Name: name, Location: location, Service: service, Due: due, Index: -1}
}

// Routing is the working solution of the routing model.
type Routing struct {
	Vehicles []*Vehicle
	Visits   []*Visit
}

// Vehicle returns the vehicle named name, or nil.
func (r *Routing) Vehicle(name string) *Vehicle {
	for _, v := range r.Vehicles {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Visit returns the visit named name, or nil.
func (r *Routing) Visit(name string) *Visit {
	for _, v := range r.Visits {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func visitRouting(solution any, visit func(any)) {
	r := solution.(*Routing)
	for _, v := range r.Vehicles {
		visit(v)
	}
	for _, v := range r.Visits {
		visit(v)
	}
}

// RoutingModel is the linked descriptor of the routing model with handles on
// its variables.
type RoutingModel struct {
	Descriptor *variable.SolutionDescriptor
	Visits     *variable.Descriptor
	Vehicle    *variable.Descriptor
	Index      *variable.Descriptor
	Previous   *variable.Descriptor
	Next       *variable.Descriptor
	Arrival    *variable.Descriptor
}

// NewRoutingModel declares and links the routing model. Arrival is declared
// before next although it depends on it, so its global order differs from
// its declaration order.
func NewRoutingModel() (*RoutingModel, error) {
	m := &RoutingModel{}
	vehicles := variable.NewEntityDescriptor("Vehicle", (*Vehicle)(nil))
	m.Visits = vehicles.AddListVariable("visits",
		func(e any) any { return e.(*Vehicle).Visits },
		variable.ListAccess{
			Size:    func(e any) int { return len(e.(*Vehicle).Visits) },
			Element: func(e any, i int) any { return e.(*Vehicle).Visits[i] },
			Add: func(e any, i int, el any) {
				v := e.(*Vehicle)
				v.Visits = append(v.Visits, nil)
				copy(v.Visits[i+1:], v.Visits[i:])
				v.Visits[i] = el.(*Visit)
			},
			Remove: func(e any, i int) any {
				v := e.(*Vehicle)
				el := v.Visits[i]
				v.Visits = append(v.Visits[:i], v.Visits[i+1:]...)
				return el
			},
		})

	visits := variable.NewEntityDescriptor("Visit", (*Visit)(nil))
	listSource := []*variable.Descriptor{m.Visits}
	m.Vehicle = visits.AddShadowVariable("vehicle",
		func(e any) any { return e.(*Visit).Vehicle },
		func(e any, v any) { e.(*Visit).Vehicle, _ = v.(*Vehicle) },
		variable.ShadowConfig{
			Sources:        listSource,
			Listener:       shadow.InverseRelationListenerFactory(m.Visits),
			ProvidedDemand: shadow.ListInverseDemand{Source: m.Visits},
		})
	m.Index = visits.AddShadowVariable("index",
		func(e any) any { return e.(*Visit).Index },
		func(e any, v any) { e.(*Visit).Index = v.(int) },
		variable.ShadowConfig{
			Sources:        listSource,
			Listener:       shadow.IndexListenerFactory(m.Visits),
			ProvidedDemand: shadow.IndexDemand{Source: m.Visits},
		})
	m.Previous = visits.AddShadowVariable("previous",
		func(e any) any { return e.(*Visit).Previous },
		func(e any, v any) { e.(*Visit).Previous, _ = v.(*Visit) },
		variable.ShadowConfig{Sources: listSource, Listener: shadow.PreviousElementListenerFactory(m.Visits)})
	m.Arrival = visits.AddShadowVariable("arrival",
		func(e any) any { return e.(*Visit).Arrival },
		func(e any, v any) { e.(*Visit).Arrival = v.(int) },
		variable.ShadowConfig{
			Listener: func(*variable.Descriptor) variable.Listener { return &ArrivalListener{model: m} },
		})
	m.Next = visits.AddShadowVariable("next",
		func(e any) any { return e.(*Visit).Next },
		func(e any, v any) { e.(*Visit).Next, _ = v.(*Visit) },
		variable.ShadowConfig{Sources: listSource, Listener: shadow.NextElementListenerFactory(m.Visits)})
	m.Arrival.SetSources(m.Vehicle, m.Previous, m.Next)

	m.Descriptor = variable.NewSolutionDescriptor(visitRouting, vehicles, visits)
	if err := m.Descriptor.Link(); err != nil {
		return nil, fmt.Errorf("routing model: %w", err)
	}
	return m, nil
}

// ArrivalListener recomputes arrival times from the changed visit to the end
// of its route, stopping at the first visit whose arrival is unchanged.
type ArrivalListener struct {
	variable.NopEntityHooks
	model *RoutingModel
}

func (l *ArrivalListener) BeforeVariableChanged(variable.ScoreDirector, any) {}

func (l *ArrivalListener) AfterVariableChanged(sd variable.ScoreDirector, entity any) {
	l.update(sd, entity.(*Visit))
}

func (l *ArrivalListener) AfterEntityAdded(sd variable.ScoreDirector, entity any) {
	l.update(sd, entity.(*Visit))
}

func (l *ArrivalListener) update(sd variable.ScoreDirector, visit *Visit) {
	if visit.Vehicle == nil {
		l.set(sd, visit, 0)
		return
	}
	for v := visit; v != nil; v = v.Next {
		if !l.set(sd, v, ArrivalAt(v)) && v != visit {
			return
		}
	}
}

func (l *ArrivalListener) set(sd variable.ScoreDirector, v *Visit, arrival int) bool {
	if v.Arrival == arrival {
		return false
	}
	sd.BeforeVariableChanged(l.model.Arrival, v)
	v.Arrival = arrival
	sd.AfterVariableChanged(l.model.Arrival, v)
	return true
}

// ArrivalAt computes the arrival time of an assigned visit from its
// predecessor's shadow variables.
func ArrivalAt(v *Visit) int {
	if v.Previous == nil {
		return distance(v.Vehicle.Depot, v.Location)
	}
	p := v.Previous
	return p.Arrival + p.Service + distance(p.Location, v.Location)
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// RoutingScore is the negated total travel distance, including the return to
// the depot, plus lateness past each visit's due time.
func RoutingScore(solution any) int64 {
	r := solution.(*Routing)
	var cost int64
	for _, vehicle := range r.Vehicles {
		at := vehicle.Depot
		for _, v := range vehicle.Visits {
			cost += int64(distance(at, v.Location))
			if v.Due > 0 && v.Arrival > v.Due {
				cost += int64(v.Arrival - v.Due)
			}
			at = v.Location
		}
		cost += int64(distance(at, vehicle.Depot))
	}
	return -cost
}

// SampleRouting returns a small routing solution: vehicle A (depot 0) serving
// a, b and c, vehicle B (depot 100) serving d, and e unassigned.
func SampleRouting() *Routing {
	a := NewVisit("a", 10, 1, 0)
	b := NewVisit("b", 20, 1, 0)
	c := NewVisit("c", 30, 1, 0)
	d := NewVisit("d", 90, 1, 0)
	e := NewVisit("e", 50, 1, 0)
	return &Routing{
		Vehicles: []*Vehicle{
			{Name: "A", Depot: 0, Visits: []*Visit{a, b, c}},
			{Name: "B", Depot: 100, Visits: []*Visit{d}},
		},
		Visits: []*Visit{a, b, c, d, e},
	}
}
