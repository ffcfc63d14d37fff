package demo

import (
	"fmt"

	"github.com/roach88/umbra/internal/shadow"
	"github.com/roach88/umbra/internal/variable"
)

// =============================================================================
// Chained: Customer.previous (chained) -> Customer.{next, driver}
// =============================================================================

// Standstill is anything a customer can follow: a driver at the head of a
// chain or another customer.
type Standstill interface {
	StandstillLocation() int
}

// Driver is the anchor of a chain. It is a problem fact, not an entity.
type Driver struct {
	Name     string
	Location int
}

func (d *Driver) String() string { return d.Name }
func (d *Driver) StandstillLocation() int { return d.Location }

// Customer is a chained planning entity.
type Customer struct {
	Name     string
	Location int
	Previous Standstill

	// Shadow variables.
	Next   *Customer
	Driver *Driver
}

func (c *Customer) String() string { return c.Name }
func (c *Customer) StandstillLocation() int { return c.Location }

// Fleet is the working solution of the chained model.
type Fleet struct {
	Drivers   []*Driver
	Customers []*Customer
}

// Driver returns the driver named name, or nil.
func (f *Fleet) Driver(name string) *Driver {
	for _, d := range f.Drivers {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Customer returns the customer named name, or nil.
func (f *Fleet) Customer(name string) *Customer {
	for _, c := range f.Customers {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Standstill resolves a driver or customer name.
func (f *Fleet) Standstill(name string) Standstill {
	if d := f.Driver(name); d != nil {
		return d
	}
	if c := f.Customer(name); c != nil {
		return c
	}
	return nil
}

func visitFleet(solution any, visit func(any)) {
	for _, c := range solution.(*Fleet).Customers {
		visit(c)
	}
}

// ChainedModel is the linked descriptor of the chained model.
type ChainedModel struct {
	Descriptor *variable.SolutionDescriptor
	Previous   *variable.Descriptor
	Next       *variable.Descriptor
	Driver     *variable.Descriptor
}

// NewChainedModel declares and links the chained model.
func NewChainedModel() (*ChainedModel, error) {
	m := &ChainedModel{}
	customers := variable.NewEntityDescriptor("Customer", (*Customer)(nil))
	m.Previous = customers.AddChainedVariable("previous",
		func(e any) any { return e.(*Customer).Previous },
		func(e any, v any) { e.(*Customer).Previous, _ = v.(Standstill) })
	m.Driver = customers.AddShadowVariable("driver",
		func(e any) any { return e.(*Customer).Driver },
		func(e any, v any) { e.(*Customer).Driver, _ = v.(*Driver) },
		variable.ShadowConfig{
			Listener: func(target *variable.Descriptor) variable.Listener {
				return shadow.NewAnchorListener(m.Previous, m.Next, target)
			},
		})
	m.Next = customers.AddShadowVariable("next",
		func(e any) any { return e.(*Customer).Next },
		func(e any, v any) { e.(*Customer).Next, _ = v.(*Customer) },
		variable.ShadowConfig{
			Sources:  []*variable.Descriptor{m.Previous},
			Listener: shadow.ChainedInverseListenerFactory(m.Previous),
		})
	m.Driver.SetSources(m.Previous, m.Next)

	m.Descriptor = variable.NewSolutionDescriptor(visitFleet, customers)
	if err := m.Descriptor.Link(); err != nil {
		return nil, fmt.Errorf("chained model: %w", err)
	}
	return m, nil
}

// ChainedScore is the negated total distance driven along every chain.
func ChainedScore(solution any) int64 {
	var cost int64
	for _, c := range solution.(*Fleet).Customers {
		if c.Previous != nil {
			cost += int64(distance(c.Previous.StandstillLocation(), c.Location))
		}
	}
	return -cost
}

// SampleFleet returns a small chained solution: D1 (at 0) -> c1 -> c2 and
// D2 (at 100) -> c3.
func SampleFleet() *Fleet {
	d1 := &Driver{Name: "D1", Location: 0}
	d2 := &Driver{Name: "D2", Location: 100}
	c1 := &Customer{Name: "c1", Location: 10, Previous: d1}
	c2 := &Customer{Name: "c2", Location: 20, Previous: c1}
	c3 := &Customer{Name: "c3", Location: 90, Previous: d2}
	return &Fleet{Drivers: []*Driver{d1, d2}, Customers: []*Customer{c1, c2, c3}}
}
