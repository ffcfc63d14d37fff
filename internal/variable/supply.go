package variable

import "fmt"

// Supply is an incremental index created on demand and cached for the
// lifetime of a score director.
type Supply any

// Demand requests a Supply. Implementations must be comparable values
// (structs of pointers and scalars) because they are used as cache keys: two
// equal demands share one supply.
type Demand interface {
	CreateExternalizedSupply(sd ScoreDirector) Supply
}

// SupplyManager hands out cached supplies.
type SupplyManager interface {
	Demand(d Demand) Supply
}

// DemandAs demands a supply and asserts its concrete type.
func DemandAs[S any](m SupplyManager, d Demand) S {
	supply := m.Demand(d)
	s, ok := supply.(S)
	if !ok {
		var zero S
		panic(fmt.Sprintf("demand %#v produced %T, want %T", d, supply, zero))
	}
	return s
}
