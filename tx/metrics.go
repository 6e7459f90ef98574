package tx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts pipeline runs. A nil *Metrics records nothing.
type Metrics struct {
	builds   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inputs   prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "libxfr",
			Subsystem: "tx",
			Name:      "builds_total",
			Help:      "Transfer builds by variant and outcome.",
		}, []string{"variant", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "libxfr",
			Subsystem: "tx",
			Name:      "build_duration_seconds",
			Help:      "Wall time of a transfer build including ledger reads.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant"}),
		inputs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "libxfr",
			Subsystem: "tx",
			Name:      "selected_inputs",
			Help:      "Inputs spent per successful transfer.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.builds, m.duration, m.inputs)
	}
	return m
}

func (m *Metrics) observe(variant string, err error, inputs int, started time.Time) {
	if m == nil {
		return
	}
	m.builds.WithLabelValues(variant, Kind(err)).Inc()
	m.duration.WithLabelValues(variant).Observe(time.Since(started).Seconds())
	if err == nil {
		m.inputs.Observe(float64(inputs))
	}
}
