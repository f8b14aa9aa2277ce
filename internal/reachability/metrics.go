package reachability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Discard reasons.
const (
	discardStopped     = "stopped"
	discardDuplicate   = "duplicate"
	discardInvalidated = "invalidated"
)

// Metrics counts provider callbacks and notification deliveries per target.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	callbacks  *prometheus.CounterVec
	deliveries *prometheus.CounterVec
	discarded  *prometheus.CounterVec
	reachable  *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		callbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reachd_callbacks_total",
			Help: "Provider callbacks received.",
		}, []string{"target"}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reachd_deliveries_total",
			Help: "Notifications handed to subscriber handlers.",
		}, []string{"target"}),
		discarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "reachd_discarded_total",
			Help: "Callbacks or deliveries dropped without reaching a handler.",
		}, []string{"target", "reason"}),
		reachable: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "reachd_reachable",
			Help: "1 when the target is reachable through the given path.",
		}, []string{"target", "via"}),
	}
}

func (m *Metrics) callback(target string) {
	if m == nil {
		return
	}
	m.callbacks.WithLabelValues(target).Inc()
}

func (m *Metrics) discard(target, reason string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(target, reason).Inc()
}

func (m *Metrics) observe(target string, s Snapshot) {
	if m == nil {
		return
	}
	m.reachable.WithLabelValues(target, "any").Set(boolGauge(s.Reachable()))
	m.reachable.WithLabelValues(target, "wifi").Set(boolGauge(s.ReachableViaWiFi()))
	m.reachable.WithLabelValues(target, "wwan").Set(boolGauge(s.ReachableViaWWAN()))
}

func (m *Metrics) deliveryHook(target string) func(bool) {
	if m == nil {
		return nil
	}
	delivered := m.deliveries.WithLabelValues(target)
	invalidated := m.discarded.WithLabelValues(target, discardInvalidated)
	return func(ok bool) {
		if ok {
			delivered.Inc()
		} else {
			invalidated.Inc()
		}
	}
}

func (m *Metrics) forget(target string) {
	if m == nil {
		return
	}
	m.reachable.DeletePartialMatch(prometheus.Labels{"target": target})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
