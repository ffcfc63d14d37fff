// Package harness runs propagation scenarios: a demo model, a sequence of
// moves and the expected outcome.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	model: routing            # or chained
//	environment_mode: full_assert
//	setup:
//	  - move: list_unassign
//	    entity: B
//	    index: 0
//	moves:
//	  - move: list_change
//	    source: A
//	    source_index: 2
//	    dest: B
//	    dest_index: 0
//	  - move: undo
//	expect:
//	  score: -80
//	  shadows:
//	    - { entity: c, variable: vehicle, value: A }
//	  fired:
//	    - { listener: Visit.arrival, entities: [c, d, b] }
//	  corruption: ["Visit.index(c)"]
//
// # Moves
//
// The routing model takes list_assign, list_unassign, list_change,
// list_swap and list_reverse. The chained model takes change, swap and
// chained_change. Both take composite, whose sub-moves are listed under
// moves, and undo, which applies the undo of the previous move. corrupt
// overwrites an integer shadow variable without notifying any listener.
//
// # Expectations
//
//   - score: the score after the last move
//   - shadows: shadow variable values in printed form, null when unassigned
//   - fired: the entities a listener fired for, in order, or a count
//   - corruption: the stale shadow variables the corruption detector
//     reports; none are allowed when empty
//
// # Deterministic Testing
//
// Scenarios run with a fixed run id and a deterministic logical clock that is
// rewound after setup, so the same scenario always produces the same trace.
// RunWithGolden compares that trace, rendered as canonical JSON, against
// testdata/golden/{name}.golden.
package harness
