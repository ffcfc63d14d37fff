// Package shadow provides the built-in shadow variable listeners and the
// supplies that moves and listeners demand.
//
// List variables:
//
//   - IndexListener, InverseRelationListener, PreviousElementListener and
//     NextElementListener maintain the position, owner and neighbours of
//     every element of a list variable.
//   - ListElementLocationSupply maps every assigned element to its entity and
//     index. It is created on demand through ListElementLocationDemand,
//     IndexDemand or ListInverseDemand.
//
// Chained variables:
//
//   - SingletonInverseSupply maps a value to the one entity pointing at it and
//     rejects a second one with TrailingEntityError.
//   - ChainedInverseListener and AnchorListener maintain the "next" and
//     "anchor" shadow variables of a chain.
//
// All listeners write through the score director's brackets so that shadow
// variables sourced on them are notified in turn.
package shadow
