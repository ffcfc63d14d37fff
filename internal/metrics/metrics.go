// Package metrics exposes listener propagation activity as Prometheus
// metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/umbra/internal/listener"
	"github.com/roach88/umbra/internal/variable"
)

// =============================================================================
// Collector
// =============================================================================

// Collector counts notifications, triggers, supply demands and corruption
// detections. It implements listener.Observer.
type Collector struct {
	notifications *prometheus.CounterVec
	triggers      prometheus.Counter
	fanOut        prometheus.Histogram
	demands       *prometheus.CounterVec
	violations    *prometheus.CounterVec
	moves         prometheus.Counter
}

var _ listener.Observer = (*Collector)(nil)

// New registers the collector's metrics with reg. A nil reg uses a fresh
// private registry, which is what tests want.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Collector{
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "umbra_listener_notifications_total",
			Help: "Listener after-hooks fired, by shadow variable and notification kind",
		}, []string{"listener", "kind"}),
		triggers: f.NewCounter(prometheus.CounterOpts{
			Name: "umbra_listener_triggers_total",
			Help: "Times the notification queues were drained",
		}),
		fanOut: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "umbra_listener_trigger_fired",
			Help:    "After-hooks fired per trigger",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 500},
		}),
		demands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "umbra_supply_demands_total",
			Help: "Supply demands by demand type and cache result",
		}, []string{"demand", "result"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "umbra_shadow_corruptions_total",
			Help: "Stale shadow variable values found by the corruption detector",
		}, []string{"variable"}),
		moves: f.NewCounter(prometheus.CounterOpts{
			Name: "umbra_moves_total",
			Help: "Moves completed by the score director",
		}),
	}
}

// NotificationFired implements listener.Observer.
func (c *Collector) NotificationFired(name string, _ int, n listener.Notification) {
	c.notifications.WithLabelValues(name, n.Kind().String()).Inc()
}

// SupplyDemanded implements listener.Observer.
func (c *Collector) SupplyDemanded(d variable.Demand, cached bool) {
	result := "miss"
	if cached {
		result = "hit"
	}
	c.demands.WithLabelValues(fmt.Sprintf("%T", d), result).Inc()
}

// QueuesTriggered implements listener.Observer.
func (c *Collector) QueuesTriggered(fired int) {
	c.triggers.Inc()
	c.fanOut.Observe(float64(fired))
}

// CorruptionDetected counts violations per shadow variable.
func (c *Collector) CorruptionDetected(violations []listener.Violation) {
	for _, v := range violations {
		c.violations.WithLabelValues(v.Variable.String()).Inc()
	}
}

// MoveCompleted counts one completed move.
func (c *Collector) MoveCompleted() {
	c.moves.Inc()
}
