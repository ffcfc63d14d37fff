package store

import (
	"context"
	"fmt"

	"github.com/roach88/umbra/internal/trace"
)

// Divergence is the first position at which two recorded traces differ.
// Left or Right is nil when one trace is a prefix of the other.
type Divergence struct {
	Position int
	Left     *trace.Event
	Right    *trace.Event
}

func (d Divergence) String() string {
	describe := func(e *trace.Event) string {
		if e == nil {
			return "<end of trace>"
		}
		return fmt.Sprintf("%s %s %s", e.Type, e.Listener+e.Label, e.Notification)
	}
	return fmt.Sprintf("traces diverge at event %d: %s != %s", d.Position, describe(d.Left), describe(d.Right))
}

// CompareRuns reports whether two runs fired the same listeners for the same
// notifications in the same order. Clock values are ignored, so runs recorded
// with different clocks compare equal when the propagation was identical.
// The returned Divergence is only meaningful when identical is false.
func (s *Store) CompareRuns(ctx context.Context, left, right string) (div Divergence, identical bool, err error) {
	a, err := s.ReadTrace(ctx, left)
	if err != nil {
		return Divergence{}, false, fmt.Errorf("compare runs: %w", err)
	}
	b, err := s.ReadTrace(ctx, right)
	if err != nil {
		return Divergence{}, false, fmt.Errorf("compare runs: %w", err)
	}

	for i := 0; i < max(len(a), len(b)); i++ {
		var l, r *trace.Event
		if i < len(a) {
			l = &a[i]
		}
		if i < len(b) {
			r = &b[i]
		}
		if l == nil || r == nil || !sameEvent(*l, *r) {
			return Divergence{Position: i, Left: l, Right: r}, false, nil
		}
	}
	return Divergence{}, true, nil
}

func sameEvent(a, b trace.Event) bool {
	a.Seq, b.Seq = 0, 0
	return a == b
}
