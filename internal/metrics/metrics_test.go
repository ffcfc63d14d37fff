package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/variable"
)

type stop struct{ Index int }

type fakeDemand struct{}

func (fakeDemand) CreateExternalizedSupply(variable.ScoreDirector) variable.Supply { return nil }

func TestCollector_NotificationsByListenerAndKind(t *testing.T) {
	c := New(nil)
	e := &stop{}

	c.NotificationFired("Stop.index", 0, listener.NewVariableChanged(e))
	c.NotificationFired("Stop.index", 0, listener.NewVariableChanged(e))
	c.NotificationFired("Stop.index", 0, listener.NewEntityAdded(e))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.notifications.WithLabelValues("Stop.index", "variable_changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("Stop.index", "entity_added")))
}

func TestCollector_Triggers(t *testing.T) {
	c := New(nil)

	c.QueuesTriggered(3)
	c.QueuesTriggered(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.triggers))
	assert.Equal(t, 1, testutil.CollectAndCount(c.fanOut))
}

func TestCollector_DemandHitsAndMisses(t *testing.T) {
	c := New(nil)

	c.SupplyDemanded(fakeDemand{}, false)
	c.SupplyDemanded(fakeDemand{}, true)
	c.SupplyDemanded(fakeDemand{}, true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.demands.WithLabelValues("metrics.fakeDemand", "miss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.demands.WithLabelValues("metrics.fakeDemand", "hit")))
}

func TestCollector_CorruptionAndMoves(t *testing.T) {
	c := New(nil)
	ed := variable.NewEntityDescriptor("Stop", (*stop)(nil))
	index := ed.AddBasicVariable("index",
		func(e any) any { return e.(*stop).Index },
		func(e any, v any) { e.(*stop).Index = v.(int) })

	c.CorruptionDetected([]listener.Violation{{Entity: &stop{}, Variable: index}, {Entity: &stop{}, Variable: index}})
	c.MoveCompleted()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.violations.WithLabelValues("Stop.index")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.moves))
}

func TestNew_RegistersWithRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)
	c.MoveCompleted()
	c.QueuesTriggered(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "umbra_moves_total")
	assert.Contains(t, names, "umbra_listener_triggers_total")
}
