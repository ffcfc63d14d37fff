package trace

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/testutil"
	"github.com/roach88/umbra/internal/variable"
)

type visit struct{ name string }

func (v *visit) String() string { return v.name }

type demand struct{}

func (demand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply { return nil }

// =============================================================================
// Clock and run ids
// =============================================================================

func TestClock_Monotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	resumed := NewClockAt(41)
	assert.Equal(t, int64(42), resumed.Next())
}

func TestUUIDv7Generator_Version(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.NotEqual(t, id, UUIDv7Generator{}.Generate())
}

// =============================================================================
// Recorder
// =============================================================================

func newTestRecorder() *Recorder {
	return NewRecorder(testutil.NewFixedRunIDGenerator("run-1"), testutil.NewDeterministicClock())
}

func TestRecorder_RecordsInOrderWithSteps(t *testing.T) {
	r := newTestRecorder()
	a := &visit{"a"}

	r.SupplyDemanded(demand{}, false)
	r.MoveStarted("change a")
	r.NotificationFired("Visit.index", 2, listener.NewElementAdded(a, 3))
	r.QueuesTriggered(1)

	events := r.Events()
	require.Len(t, events, 4)
	assert.Equal(t, "run-1", r.RunID())

	assert.Equal(t, Event{Seq: 1, Type: TypeDemand, Demand: "trace.demand"}, events[0])
	assert.Equal(t, Event{Seq: 2, Type: TypeMove, Step: 1, Label: "change a"}, events[1])
	assert.Equal(t, Event{
		Seq:          3,
		Type:         TypeFired,
		Step:         1,
		Listener:     "Visit.index",
		GlobalOrder:  2,
		Kind:         "element_added",
		Entity:       "a",
		Notification: "element_added(a[3])",
	}, events[2])
	assert.Equal(t, Event{Seq: 4, Type: TypeTrigger, Step: 1, Fired: 1}, events[3])

	assert.Len(t, r.Fired(), 1)
}

func TestRecorder_ResetKeepsRunID(t *testing.T) {
	r := newTestRecorder()
	r.MoveStarted("m")
	r.Reset()

	assert.Empty(t, r.Events())
	r.QueuesTriggered(0)
	assert.Equal(t, 0, r.Events()[0].Step)
	assert.Equal(t, int64(1), r.Events()[0].Seq, "the clock was rewound")
	assert.Equal(t, "run-1", r.RunID())
}

// =============================================================================
// Canonical JSON
// =============================================================================

func TestMarshalCanonical_SortedKeysOneEventPerLine(t *testing.T) {
	events := []Event{
		{Seq: 1, Type: TypeMove, Step: 1, Label: "a <b> & c"},
		{Seq: 2, Type: TypeTrigger, Step: 1, Fired: 0},
	}

	out, err := MarshalCanonical(events)
	require.NoError(t, err)

	assert.Equal(t, "[\n"+
		`  {"label":"a <b> & c","seq":1,"step":1,"type":"move"},`+"\n"+
		`  {"fired":0,"seq":2,"step":1,"type":"trigger"}`+"\n"+
		"]\n", string(out))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"

	a, err := MarshalCanonical([]Event{{Seq: 1, Type: TypeMove, Label: decomposed}})
	require.NoError(t, err)
	b, err := MarshalCanonical([]Event{{Seq: 1, Type: TypeMove, Label: composed}})
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_Empty(t *testing.T) {
	out, err := MarshalCanonical(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(out))
}

func TestMarshalEvent_DecodesBack(t *testing.T) {
	e := Event{Seq: 7, Type: TypeFired, Step: 2, Listener: "Visit.arrival", GlobalOrder: 4,
		Kind: "variable_changed", Entity: "c", Notification: "variable_changed(c)"}

	out, err := MarshalEvent(e)
	require.NoError(t, err)
	assert.Equal(t, `{"entity":"c","global_order":4,"kind":"variable_changed","listener":"Visit.arrival",`+
		`"notification":"variable_changed(c)","seq":7,"step":2,"type":"fired"}`, string(out))

	var back Event
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, e, back)
}
