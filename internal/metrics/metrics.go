// Package metrics exposes the push service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors. It satisfies application.Recorder.
type Metrics struct {
	Dispatches       *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec
	Prunes           *prometheus.CounterVec
	Upserts          *prometheus.CounterVec
	Events           *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terangahub",
			Subsystem: "push",
			Name:      "dispatch_total",
			Help:      "Push dispatch attempts by outcome.",
		}, []string{"outcome"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "terangahub",
			Subsystem: "push",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent on a dispatch attempt, including the push service call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		Prunes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terangahub",
			Subsystem: "push",
			Name:      "prune_total",
			Help:      "Expired subscriptions pruned after a gone response.",
		}, []string{"removed"}),
		Upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terangahub",
			Subsystem: "push",
			Name:      "subscription_upsert_total",
			Help:      "Subscription writes received from devices.",
		}, []string{"result"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "terangahub",
			Subsystem: "push",
			Name:      "events_total",
			Help:      "Kafka events processed by topic and result.",
		}, []string{"topic", "result"}),
	}
	reg.MustRegister(m.Dispatches, m.DispatchDuration, m.Prunes, m.Upserts, m.Events)
	return m
}

func (m *Metrics) ObserveDispatch(outcome string, elapsed time.Duration) {
	m.Dispatches.WithLabelValues(outcome).Inc()
	m.DispatchDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePrune(removed bool) {
	label := "false"
	if removed {
		label = "true"
	}
	m.Prunes.WithLabelValues(label).Inc()
}

func (m *Metrics) ObserveUpsert(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Upserts.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveEvent(topic, result string) {
	m.Events.WithLabelValues(topic, result).Inc()
}
