// Package store provides SQLite-backed storage for propagation runs.
//
// A run is one scenario executed against a score director. The store keeps:
//   - Runs: scenario, model, environment mode, final score and move count
//   - Trace events: every recorded listener firing, trigger and demand
//   - Violations: stale shadow variables found by the corruption detector
//
// # Ordering
//
// Trace events are ordered by their logical clock value (seq), never by wall
// time, so reading a run back yields exactly the recorded order. Queries use
// ORDER BY seq ASC for events and ORDER BY step ASC, id ASC for violations.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events and violations must belong to a run
package store
