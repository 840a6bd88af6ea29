// Package metrics exposes the operational state as Prometheus series.
package metrics

import (
	"FlowSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flowsentinel"

// Error stages for ReadingErrors.
const (
	StageAcquisition = "acquisition"
	StageProcessing  = "processing"
)

// Metrics holds every collector the monitor updates.
type Metrics struct {
	FlowRate        prometheus.Gauge
	TotalLiters     prometheus.Gauge
	EstimatedCost   prometheus.Gauge
	LeakActive      prometheus.Gauge
	LeakDuration    prometheus.Gauge
	SessionDuration prometheus.Gauge
	Readings        prometheus.Counter
	ReadingErrors   *prometheus.CounterVec
	Events          *prometheus.CounterVec
	DroppedEvents   prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FlowRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "flow_liters_per_minute",
			Help: "Flow rate of the most recent reading.",
		}),
		TotalLiters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "volume_liters",
			Help: "Volume accumulated since process start.",
		}),
		EstimatedCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "estimated_cost",
			Help: "Accumulated volume multiplied by the unit price.",
		}),
		LeakActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "leak_active",
			Help: "1 while a leak is detected, 0 otherwise.",
		}),
		LeakDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "leak_duration_seconds",
			Help: "Duration of the active leak.",
		}),
		SessionDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "session_duration_seconds",
			Help: "Duration of the active usage session.",
		}),
		Readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "readings_total",
			Help: "Readings applied to the state.",
		}),
		ReadingErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "reading_errors_total",
			Help: "Readings that could not be acquired or applied, by stage.",
		}, []string{"stage"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_total",
			Help: "State transitions, by kind.",
		}, []string{"kind"}),
		DroppedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_dropped_total",
			Help: "Events discarded because the dispatch queue was full.",
		}),
	}
	reg.MustRegister(
		m.FlowRate, m.TotalLiters, m.EstimatedCost, m.LeakActive, m.LeakDuration,
		m.SessionDuration, m.Readings, m.ReadingErrors, m.Events, m.DroppedEvents,
	)
	return m
}

// Observe mirrors a freshly applied snapshot.
func (m *Metrics) Observe(s model.Snapshot) {
	m.Readings.Inc()
	m.FlowRate.Set(s.FlowPerMinute)
	m.TotalLiters.Set(s.TotalLiters)
	m.EstimatedCost.Set(s.EstimatedCost.InexactFloat64())
	m.SessionDuration.Set(s.SessionDuration.Seconds())
	m.LeakDuration.Set(s.LeakDuration.Seconds())
	if s.LeakActive {
		m.LeakActive.Set(1)
	} else {
		m.LeakActive.Set(0)
	}
}
