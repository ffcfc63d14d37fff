package harness

import (
	"fmt"
	"reflect"

	"github.com/roach88/umbra/internal/demo"
	"github.com/roach88/umbra/internal/director"
	"github.com/roach88/umbra/internal/move"
	"github.com/roach88/umbra/internal/variable"
)

// model adapts a demo model to scenario steps. Entities are referred to by
// name.
type model interface {
	descriptor() *variable.SolutionDescriptor
	scoreFunc() director.ScoreFunc
	solution() any
	entity(name string) (any, bool)
	build(step MoveStep) (move.Move, error)
}

func newModel(name string) (model, error) {
	switch name {
	case ModelRouting:
		m, err := demo.NewRoutingModel()
		if err != nil {
			return nil, err
		}
		return &routingModel{m: m, r: demo.SampleRouting()}, nil
	case ModelChained:
		m, err := demo.NewChainedModel()
		if err != nil {
			return nil, err
		}
		return &chainedModel{m: m, f: demo.SampleFleet()}, nil
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
}

// variableOf resolves a variable of a named entity.
func variableOf(mdl model, entityName, variableName string) (any, *variable.Descriptor, error) {
	entity, ok := mdl.entity(entityName)
	if !ok {
		return nil, nil, fmt.Errorf("unknown entity %q", entityName)
	}
	e, ok := mdl.descriptor().FindEntityDescriptor(entity)
	if !ok {
		return nil, nil, fmt.Errorf("%q is not a planning entity", entityName)
	}
	v := e.Variable(variableName)
	if v == nil {
		return nil, nil, fmt.Errorf("%s has no variable %q", e.Name(), variableName)
	}
	return entity, v, nil
}

// formatValue prints a variable value. Typed nil pointers print as <nil>
// like untyped nil.
func formatValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if rv.IsNil() {
			return "<nil>"
		}
	}
	return fmt.Sprint(v)
}

func unsupported(model string, step MoveStep) error {
	return fmt.Errorf("move %q is not supported by the %s model", step.Move, model)
}

// =============================================================================
// Routing
// =============================================================================

type routingModel struct {
	m *demo.RoutingModel
	r *demo.Routing
}

func (rm *routingModel) descriptor() *variable.SolutionDescriptor { return rm.m.Descriptor }
func (rm *routingModel) scoreFunc() director.ScoreFunc             { return demo.RoutingScore }
func (rm *routingModel) solution() any                            { return rm.r }

func (rm *routingModel) entity(name string) (any, bool) {
	if v := rm.r.Vehicle(name); v != nil {
		return v, true
	}
	if v := rm.r.Visit(name); v != nil {
		return v, true
	}
	return nil, false
}

func (rm *routingModel) vehicle(name string) (*demo.Vehicle, error) {
	if v := rm.r.Vehicle(name); v != nil {
		return v, nil
	}
	return nil, fmt.Errorf("unknown vehicle %q", name)
}

func (rm *routingModel) build(step MoveStep) (move.Move, error) {
	switch step.Move {
	case MoveListAssign:
		visit := rm.r.Visit(step.Element)
		if visit == nil {
			return nil, fmt.Errorf("unknown visit %q", step.Element)
		}
		vehicle, err := rm.vehicle(step.Entity)
		if err != nil {
			return nil, err
		}
		return move.ListAssign{Variable: rm.m.Visits, Element: visit, Entity: vehicle, Index: step.Index}, nil

	case MoveListUnassign:
		vehicle, err := rm.vehicle(step.Entity)
		if err != nil {
			return nil, err
		}
		return move.ListUnassign{Variable: rm.m.Visits, Entity: vehicle, Index: step.Index}, nil

	case MoveListChange:
		source, err := rm.vehicle(step.Source)
		if err != nil {
			return nil, err
		}
		dest, err := rm.vehicle(step.Dest)
		if err != nil {
			return nil, err
		}
		return move.ListChange{
			Variable:    rm.m.Visits,
			Source:      source,
			SourceIndex: step.SourceIndex,
			Dest:        dest,
			DestIndex:   step.DestIndex,
		}, nil

	case MoveListSwap:
		left, err := rm.vehicle(step.Left)
		if err != nil {
			return nil, err
		}
		right, err := rm.vehicle(step.Right)
		if err != nil {
			return nil, err
		}
		return move.ListSwap{
			Variable:   rm.m.Visits,
			Left:       left,
			LeftIndex:  step.LeftIndex,
			Right:      right,
			RightIndex: step.RightIndex,
		}, nil

	case MoveListReverse:
		vehicle, err := rm.vehicle(step.Entity)
		if err != nil {
			return nil, err
		}
		return move.ListReverse{Variable: rm.m.Visits, Entity: vehicle, From: step.From, To: step.End}, nil
	}
	return nil, unsupported(ModelRouting, step)
}

// =============================================================================
// Chained
// =============================================================================

type chainedModel struct {
	m *demo.ChainedModel
	f *demo.Fleet
}

func (cm *chainedModel) descriptor() *variable.SolutionDescriptor { return cm.m.Descriptor }
func (cm *chainedModel) scoreFunc() director.ScoreFunc             { return demo.ChainedScore }
func (cm *chainedModel) solution() any                            { return cm.f }

func (cm *chainedModel) entity(name string) (any, bool) {
	if s := cm.f.Standstill(name); s != nil {
		return s, true
	}
	return nil, false
}

func (cm *chainedModel) customer(name string) (*demo.Customer, error) {
	if c := cm.f.Customer(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("unknown customer %q", name)
}

func (cm *chainedModel) standstill(name string) (demo.Standstill, error) {
	if s := cm.f.Standstill(name); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("unknown driver or customer %q", name)
}

func (cm *chainedModel) build(step MoveStep) (move.Move, error) {
	switch step.Move {
	case MoveChange, MoveChainedChange:
		customer, err := cm.customer(step.Entity)
		if err != nil {
			return nil, err
		}
		to, err := cm.standstill(step.To)
		if err != nil {
			return nil, err
		}
		if step.Move == MoveChange {
			return move.Change{Variable: cm.m.Previous, Entity: customer, To: to}, nil
		}
		return move.ChainedChange{Variable: cm.m.Previous, Entity: customer, To: to}, nil

	case MoveSwap:
		left, err := cm.customer(step.Left)
		if err != nil {
			return nil, err
		}
		right, err := cm.customer(step.Right)
		if err != nil {
			return nil, err
		}
		return move.Swap{Variables: []*variable.Descriptor{cm.m.Previous}, Left: left, Right: right}, nil
	}
	return nil, unsupported(ModelChained, step)
}
