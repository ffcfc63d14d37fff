// Package trace records which listener fired for which notification, in
// order, so that propagation can be replayed, diffed and persisted.
package trace

import (
	"fmt"
	"sync"

	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/variable"
)

// Event types.
const (
	TypeMove    = "move"
	TypeFired   = "fired"
	TypeTrigger = "trigger"
	TypeDemand  = "demand"
)

// Event is one line of a propagation trace.
type Event struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`
	// Step is the number of moves started so far. Events recorded while
	// setting the working solution have step 0.
	Step int `json:"step"`

	// Move, for TypeMove.
	Label string `json:"label,omitempty"`

	// TypeFired.
	Listener     string `json:"listener,omitempty"`
	GlobalOrder  int    `json:"global_order"`
	Kind         string `json:"kind,omitempty"`
	Entity       string `json:"entity,omitempty"`
	Notification string `json:"notification,omitempty"`

	// TypeTrigger.
	Fired int `json:"fired"`

	// TypeDemand.
	Demand string `json:"demand,omitempty"`
	Cached bool   `json:"cached"`
}

// Recorder is a listener.Observer that appends every propagation event to
// an in-memory trace.
type Recorder struct {
	mu     sync.Mutex
	runID  string
	clock  Sequencer
	step   int
	events []Event
}

var _ listener.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder for a new run.
func NewRecorder(gen RunIDGenerator, clock Sequencer) *Recorder {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	if clock == nil {
		clock = NewClock()
	}
	return &Recorder{runID: gen.Generate(), clock: clock}
}

// RunID returns the id of the recorded run.
func (r *Recorder) RunID() string { return r.runID }

func (r *Recorder) append(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Seq = r.clock.Next()
	e.Step = r.step
	r.events = append(r.events, e)
}

// MoveStarted marks the start of a move. Events that follow belong to it.
func (r *Recorder) MoveStarted(label string) {
	r.mu.Lock()
	r.step++
	r.mu.Unlock()
	r.append(Event{Type: TypeMove, Label: label})
}

// NotificationFired implements listener.Observer.
func (r *Recorder) NotificationFired(name string, globalOrder int, n listener.Notification) {
	r.append(Event{
		Type:         TypeFired,
		Listener:     name,
		GlobalOrder:  globalOrder,
		Kind:         n.Kind().String(),
		Entity:       fmt.Sprint(n.Entity()),
		Notification: n.String(),
	})
}

// SupplyDemanded implements listener.Observer.
func (r *Recorder) SupplyDemanded(d variable.Demand, cached bool) {
	r.append(Event{Type: TypeDemand, Demand: fmt.Sprintf("%T", d), Cached: cached})
}

// QueuesTriggered implements listener.Observer.
func (r *Recorder) QueuesTriggered(fired int) {
	r.append(Event{Type: TypeTrigger, Fired: fired})
}

// Events returns a copy of the trace.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Fired returns only the TypeFired events.
func (r *Recorder) Fired() []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == TypeFired {
			out = append(out, e)
		}
	}
	return out
}

// Reset drops all recorded events and rewinds the clock if it can be
// rewound. The run id is kept.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	r.step = 0
	if c, ok := r.clock.(interface{ Reset() }); ok {
		c.Reset()
	}
}
