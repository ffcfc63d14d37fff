package store

import (
	"context"
	"fmt"

	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/trace"
)

// Run is the summary row of a recorded run.
type Run struct {
	ID              string
	Scenario        string
	Model           string
	EnvironmentMode string
	Score           int64
	Moves           int
}

// ViolationRecord is a stored corruption detector finding. Values are kept
// in their printed form.
type ViolationRecord struct {
	RunID       string
	Step        int
	Variable    string
	Entity      string
	Listener    string
	Corrupted   string
	Uncorrupted string
}

// WriteRun inserts a run, or updates its score and move count when a run
// with the same ID exists.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, model, environment_mode, score, moves)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET score = excluded.score, moves = excluded.moves
	`,
		run.ID,
		run.Scenario,
		run.Model,
		run.EnvironmentMode,
		run.Score,
		run.Moves,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// WriteTraceEvents appends events to a run in one transaction. Events whose
// seq is already stored for the run are ignored, so re-writing a trace is
// idempotent.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteTraceEvents(ctx context.Context, runID string, events []trace.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (run_id, seq, step, type, listener, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write trace events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		payload, err := marshalEvent(e)
		if err != nil {
			return fmt.Errorf("write trace events: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, e.Seq, e.Step, e.Type, e.Listener, payload); err != nil {
			return fmt.Errorf("write trace events: seq %d: %w", e.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace events: commit: %w", err)
	}
	return nil
}

// WriteViolation records one corruption detector finding for step of a run.
//
// Note: The run must exist (foreign key constraint).
func (s *Store) WriteViolation(ctx context.Context, runID string, step int, v listener.Violation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO violations (run_id, step, variable, entity, listener, corrupted, uncorrupted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		step,
		v.Variable.String(),
		fmt.Sprint(v.Entity),
		v.Listener,
		fmt.Sprint(v.Corrupted),
		fmt.Sprint(v.Uncorrupted),
	)
	if err != nil {
		return fmt.Errorf("write violation: %w", err)
	}
	return nil
}
