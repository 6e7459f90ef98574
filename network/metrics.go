package network

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records ledger query traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates the client metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libxfr",
			Subsystem: "ledger_client",
			Name:      "requests_total",
			Help:      "Ledger query requests by route and outcome.",
		}, []string{"route", "outcome"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libxfr",
			Subsystem: "ledger_client",
			Name:      "retries_total",
			Help:      "Ledger query attempts retried after a transient failure.",
		}, []string{"route"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "libxfr",
			Subsystem: "ledger_client",
			Name:      "request_duration_seconds",
			Help:      "Ledger query latency per attempt.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.retries, m.latency)
	}
	return m
}

func (m *Metrics) observe(route, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, outcome).Inc()
	m.latency.WithLabelValues(route).Observe(time.Since(started).Seconds())
}

func (m *Metrics) retry(route string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(route).Inc()
}
