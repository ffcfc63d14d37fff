// Package variable describes the planning model that the propagation engine
// works against: solutions, entities, genuine variables and shadow variables.
//
// A genuine variable is assigned by moves. A shadow variable is derived state
// kept consistent by a listener that is sourced on one or more other
// variables (genuine or shadow).
//
// # Topology
//
// SolutionDescriptor.Link validates the shadow declarations and assigns every
// shadow variable a global shadow order. The order is a topological sort of
// the shadow dependency graph: a shadow variable always has a strictly higher
// order than every shadow variable it is sourced on. Cycles are rejected at
// link time with a ConfigError; they are never detected at runtime.
//
// # Entity identity
//
// Entities are compared by identity. They must be pointers (or other
// comparable values whose equality is identity), because the engine uses them
// as map keys when deduplicating notifications and building inverse indexes.
package variable
