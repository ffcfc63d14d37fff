package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/umbra/internal/trace"
)

// ReadRun returns the run with id.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	var run Run
	err := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, model, environment_mode, score, moves
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.Scenario, &run.Model, &run.EnvironmentMode, &run.Score, &run.Moves)
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns every run in insertion order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, model, environment_mode, score, moves
		FROM runs
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Scenario, &run.Model, &run.EnvironmentMode, &run.Score, &run.Moves); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadTrace returns the trace of a run ordered by seq.
//
// Returns an empty slice (not nil) if the run has no events.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace events: %w", err)
	}
	return scanEvents(rows)
}

// ReadFired returns the firings of one listener in a run ordered by seq.
func (s *Store) ReadFired(ctx context.Context, runID, listenerName string) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload
		FROM trace_events
		WHERE run_id = ? AND listener = ? AND type = ?
		ORDER BY seq ASC
	`, runID, listenerName, trace.TypeFired)
	if err != nil {
		return nil, fmt.Errorf("query fired events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]trace.Event, error) {
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan trace event: %w", err)
		}
		e, err := unmarshalEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace events: %w", err)
	}
	return events, nil
}

// ReadViolations returns the violations of a run ordered by step, then by
// insertion.
func (s *Store) ReadViolations(ctx context.Context, runID string) ([]ViolationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step, variable, entity, listener, corrupted, uncorrupted
		FROM violations
		WHERE run_id = ?
		ORDER BY step ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query violations: %w", err)
	}
	defer rows.Close()

	violations := []ViolationRecord{}
	for rows.Next() {
		var v ViolationRecord
		if err := rows.Scan(&v.RunID, &v.Step, &v.Variable, &v.Entity, &v.Listener, &v.Corrupted, &v.Uncorrupted); err != nil {
			return nil, fmt.Errorf("scan violation: %w", err)
		}
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate violations: %w", err)
	}
	return violations, nil
}
